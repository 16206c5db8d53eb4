package models

type Outcome string

const (
	OutcomeWin          Outcome = "WIN"
	OutcomeLoss         Outcome = "LOSS"
	OutcomeInconclusive Outcome = "INCONCLUSIVE"
)

// Verdict - ответ внешнего арбитра относительно заявленного победителя.
type Verdict struct {
	Outcome    Outcome `json:"verdict"`
	Confidence float64 `json:"confidence"`
}

var Inconclusive = Verdict{Outcome: OutcomeInconclusive}
