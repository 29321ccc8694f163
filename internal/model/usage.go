package model

// Usage is the main land use class of an unsealed area.
type Usage byte

const (
	UsageUnknown        Usage = '?'
	UsageAgricultural   Usage = 'L'
	UsageForested       Usage = 'W'
	UsageWaterbody      Usage = 'G'
	UsageHorticultural  Usage = 'K'
	UsageVegetationless Usage = 'D'
)

func (u Usage) String() string {
	switch u {
	case UsageAgricultural:
		return "agricultural"
	case UsageForested:
		return "forested"
	case UsageWaterbody:
		return "waterbody"
	case UsageHorticultural:
		return "horticultural"
	case UsageVegetationless:
		return "vegetationless"
	default:
		return "unknown"
	}
}

// UsageTuple is the classification result of a (usage, type) code pair.
type UsageTuple struct {
	Usage      Usage `json:"usage"`
	Yield      int   `json:"yield"`      // yield power (ERT)
	Irrigation int   `json:"irrigation"` // irrigation [mm/a] (BER)
}
