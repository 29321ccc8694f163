// Package model defines the records, parameters and run bookkeeping shared by
// the water balance packages.
package model

// InputRecord holds the attributes of one parcel (block partial area) as read
// from the input table. Percentages are stored as given (0..100); the
// calculator normalizes them.
type InputRecord struct {
	Code     string `json:"code"`     // CODE
	Usage    int    `json:"usage"`    // NUTZUNG
	Type     int    `json:"type"`     // TYP
	District int    `json:"district"` // BEZIRK

	DepthToWaterTable float32 `json:"depth_to_water_table"` // FLUR [m]
	FieldCapacity30   int     `json:"field_capacity_30"`    // FELD_30
	FieldCapacity150  int     `json:"field_capacity_150"`   // FELD_150

	PrecipitationYear   int `json:"precipitation_year"`   // REGENJA [mm/a]
	PrecipitationSummer int `json:"precipitation_summer"` // REGENSO [mm/a]

	RoofSealed  float32 `json:"roof_sealed"`  // PROBAU [%]
	OtherSealed float32 `json:"other_sealed"` // PROVGU [%]
	RoadSealed  float32 `json:"road_sealed"`  // VGSTRASSE [%]

	Pavement     [4]float32 `json:"pavement"`      // BELAG1..4 [%]
	RoadPavement [4]float32 `json:"road_pavement"` // STR_BELAG1..4 [%]

	RoofSewer  float32 `json:"roof_sewer"`  // KAN_BEB [%]
	OtherSewer float32 `json:"other_sewer"` // KAN_VGU [%]
	RoadSewer  float32 `json:"road_sewer"`  // KAN_STR [%]

	MainArea float32 `json:"main_area"` // FLGES [m2]
	RoadArea float32 `json:"road_area"` // STR_FLGES [m2]
}

// OutputRecord is the computed water balance of one parcel.
type OutputRecord struct {
	Code               string  `json:"code"`
	Runoff             float32 `json:"runoff"`              // R [mm/a]
	SurfaceRunoff      float32 `json:"surface_runoff"`      // ROW [mm/a]
	Infiltration       float32 `json:"infiltration"`        // RI [mm/a]
	RunoffVolume       float32 `json:"runoff_volume"`       // RVOL
	SurfaceVolume      float32 `json:"surface_volume"`      // ROWVOL
	InfiltrationVolume float32 `json:"infiltration_volume"` // RIVOL
	Area               float32 `json:"area"`                // FLAECHE
	Evaporation        float32 `json:"evaporation"`         // VERDUNSTUN [mm/a]
}

// Output field names, in file order.
const (
	FieldCode               = "CODE"
	FieldRunoff             = "R"
	FieldSurfaceRunoff      = "ROW"
	FieldInfiltration       = "RI"
	FieldRunoffVolume       = "RVOL"
	FieldSurfaceVolume      = "ROWVOL"
	FieldInfiltrationVolume = "RIVOL"
	FieldArea               = "FLAECHE"
	FieldEvaporation        = "VERDUNSTUN"
)

// OutputFields lists the output columns in file order.
var OutputFields = []string{
	FieldCode,
	FieldRunoff,
	FieldSurfaceRunoff,
	FieldInfiltration,
	FieldRunoffVolume,
	FieldSurfaceVolume,
	FieldInfiltrationVolume,
	FieldArea,
	FieldEvaporation,
}

// Values returns the numeric output values in file order (without CODE).
func (o OutputRecord) Values() []float32 {
	return []float32{
		o.Runoff,
		o.SurfaceRunoff,
		o.Infiltration,
		o.RunoffVolume,
		o.SurfaceVolume,
		o.InfiltrationVolume,
		o.Area,
		o.Evaporation,
	}
}
