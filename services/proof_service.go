package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Dosada05/arena-escrow/models"
	"github.com/Dosada05/arena-escrow/repositories"
	"github.com/Dosada05/arena-escrow/storage"
)

// ProofService сохраняет скриншот результата в хранилище и передаёт ключ в SubmitProof.
type ProofService interface {
	UploadProof(ctx context.Context, matchID, userID int64, file io.Reader, contentType string) (*models.Match, error)
	ProofURL(proofRef string) string
}

type proofService struct {
	store    repositories.Store
	escrow   EscrowService
	uploader storage.ProofStore
	logger   *slog.Logger
}

// NewProofService принимает nil uploader, если хранилище не настроено.
func NewProofService(store repositories.Store, escrow EscrowService, uploader storage.ProofStore, logger *slog.Logger) ProofService {
	return &proofService{store: store, escrow: escrow, uploader: uploader, logger: logger}
}

func (s *proofService) UploadProof(ctx context.Context, matchID, userID int64, file io.Reader, contentType string) (*models.Match, error) {
	if s.uploader == nil {
		return nil, ErrProofStorageOff
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: got %q", ErrUnsupportedProof, contentType)
	}
	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedProof, err)
	}

	// Предварительная проверка без блокировок, чтобы не оставлять файлы от заведомо неудачных попыток.
	if err := s.precheck(ctx, matchID, userID); err != nil {
		return nil, err
	}

	stored, err := s.uploader.Put(ctx, storage.ProofKey(matchID, ext), contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload proof for match %d: %w", matchID, err)
	}

	match, err := s.escrow.SubmitProof(ctx, matchID, userID, stored.Key)
	if err != nil {
		if delErr := s.uploader.Delete(context.WithoutCancel(ctx), stored.Key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete orphaned proof",
				slog.Int64("match_id", matchID), slog.String("key", stored.Key), slog.Any("error", delErr))
		}
		return nil, err
	}
	return match, nil
}

func (s *proofService) precheck(ctx context.Context, matchID, userID int64) error {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return mapMatchError(err, matchID)
	}
	switch match.State {
	case models.StateInProgress:
	case models.StateAIReview, models.StateHumanReview, models.StateFinalized:
		return fmt.Errorf("%w: match %d is %s", ErrAlreadySubmitted, matchID, match.State)
	default:
		return fmt.Errorf("%w: match %d is %s", ErrMatchNotInProgress, matchID, match.State)
	}
	slots, err := s.store.ListSlots(ctx, matchID)
	if err != nil {
		return fmt.Errorf("failed to load roster of match %d: %w", matchID, err)
	}
	if newRoster(match, slots).SlotOf(userID) == nil {
		return fmt.Errorf("%w: user %d does not play in match %d", ErrUnauthorized, userID, matchID)
	}
	return nil
}

// ProofURL превращает ключ хранилища в публичный адрес. Чужие ссылки возвращаются как есть.
func (s *proofService) ProofURL(proofRef string) string {
	if s.uploader == nil || !storage.IsProofKey(proofRef) {
		return proofRef
	}
	if url := s.uploader.PublicURL(proofRef); url != "" {
		return url
	}
	return proofRef
}
