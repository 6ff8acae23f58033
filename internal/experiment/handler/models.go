package handler

// StartSession is the request to store patient info for a new visit.
type StartSession struct {
	PatientID       string `json:"patient_id" binding:"required"`
	FootMeasurement string `json:"foot_measurement" binding:"required"`
	ExportDirectory string `json:"export_directory" binding:"required"`
	Vibrotactile    bool   `json:"vibrotactile"`
}

// SetThreshold is the request to change the APA threshold percentage.
type SetThreshold struct {
	Percent int `json:"percent" binding:"required"`
}

// StopBaseline chooses whether pending baseline steps are kept.
type StopBaseline struct {
	Save bool `json:"save"`
}

// ReviewDecision accepts or discards the step or trial under review.
type ReviewDecision struct {
	Accept bool   `json:"accept"`
	Notes  string `json:"notes"`
}

// StartTrial is the request to begin a stepping or standing trial.
type StartTrial struct {
	TrialType       string `json:"trial_type" binding:"required"`
	StimulatorSetup string `json:"stimulator_setup" binding:"required"`
}
