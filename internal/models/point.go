package models

// ControlParamCount is the number of writable T-C board parameters.
const ControlParamCount = 7

// TemperaturePoint is one step of the experiment sequence.
type TemperaturePoint struct {
	Index    int                        `json:"index" yaml:"index"`
	Target   float64                    `json:"target" yaml:"target"`     // °C
	Params   [ControlParamCount]float64 `json:"params" yaml:"params"`     // set, correct, lead, fuzzy, ratio, integral, power
	Finished bool                       `json:"finished" yaml:"finished"` // set once, when measured
}
