package orchestrator

// Stage is a step of the issuance flow.
type Stage int

const (
	StageAwaitLogin Stage = iota
	StageSelectCertificate
	StageEnterPassword
	StageAwaitMenu
	StageFillForm
	StageSubmit
	StageAwaitUserConfirmation
	StageDone
	StageFailed
)

var stageNames = [...]string{
	StageAwaitLogin:            "AwaitLogin",
	StageSelectCertificate:     "SelectCertificate",
	StageEnterPassword:         "EnterPassword",
	StageAwaitMenu:             "AwaitMenu",
	StageFillForm:              "FillForm",
	StageSubmit:                "Submit",
	StageAwaitUserConfirmation: "AwaitUserConfirmation",
	StageDone:                  "Done",
	StageFailed:                "Failed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "Unknown"
	}
	return stageNames[s]
}

// Terminal reports whether no stage follows s.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}
