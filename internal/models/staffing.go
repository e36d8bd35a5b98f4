package models

// Special conditions recognized by the staffing estimate.
const (
	ConditionArctic        = "Arctic/Cold Weather"
	ConditionFERC          = "FERC Jurisdictional"
	ConditionSourService   = "Sour Service (H2S)"
	ConditionFME           = "Foreign Material Exclusion"
	ConditionClassLocation = "Class 3/4 Locations"
	ConditionHDD           = "HDD Crossings"
	ConditionOffshore      = "Offshore/Water Crossing"
)

// SpecialConditions lists the recognized risk modifiers.
var SpecialConditions = []string{
	ConditionArctic,
	ConditionFERC,
	ConditionSourService,
	ConditionFME,
	ConditionClassLocation,
	ConditionHDD,
	ConditionOffshore,
}

// PipeDiameters lists the accepted nominal pipe sizes.
var PipeDiameters = []string{
	`2"`, `4"`, `6"`, `8"`, `10"`, `12"`, `16"`, `20"`, `24"`, `30"`, `36"`, `42"`, `48"`,
}

// StaffingParams are the engineering parameters of a staffing estimate.
// Pointer fields are optional; an absent num_spreads means one spread.
type StaffingParams struct {
	PipeDiameter      string   `json:"pipe_diameter"`
	WeldCount         *int     `json:"weld_count"`
	PipelineMileage   *float64 `json:"pipeline_mileage"`
	NumSpreads        *int     `json:"num_spreads"`
	FacilitiesCount   int      `json:"facilities_count"`
	DurationMonths    *int     `json:"duration_months"`
	SpecialConditions []string `json:"special_conditions"`
}

// DeliverableParams carries per-type generation parameters.
type DeliverableParams struct {
	Staffing *StaffingParams `json:"staffing,omitempty"`
}
