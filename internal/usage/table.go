package usage

import "github.com/urbanhydro/abimo/internal/model"

// band is the classification of one usage code. A band with no types maps
// every type code to its fallback silently; otherwise unmatched types get the
// fallback tuple plus a diagnostic.
type band struct {
	types        map[int]model.UsageTuple
	fallbackType int
	fallback     model.UsageTuple
}

func ag(yield, irrigation int) model.UsageTuple {
	return model.UsageTuple{Usage: model.UsageAgricultural, Yield: yield, Irrigation: irrigation}
}

func hort(yield, irrigation int) model.UsageTuple {
	return model.UsageTuple{Usage: model.UsageHorticultural, Yield: yield, Irrigation: irrigation}
}

var (
	forest     = model.UsageTuple{Usage: model.UsageForested}
	waterbody  = model.UsageTuple{Usage: model.UsageWaterbody}
	vegetation = model.UsageTuple{Usage: model.UsageVegetationless, Yield: 1}
)

// Residential and mixed areas share one table of building structure types.
var residential = band{
	types: map[int]model.UsageTuple{
		1:  ag(35, 0),
		2:  ag(35, 0),
		3:  ag(45, 0),
		4:  ag(40, 0),
		5:  ag(40, 0),
		6:  ag(40, 0),
		7:  ag(35, 0),
		8:  ag(35, 0),
		9:  ag(40, 0),
		10: ag(40, 0),
		11: ag(35, 0),
		21: ag(45, 0),
		22: hort(40, 75),
		23: hort(40, 75),
		24: ag(55, 75),
		25: hort(40, 75),
		26: ag(40, 0),
		29: ag(30, 0),
		33: ag(35, 0),
		38: ag(35, 0),
		39: ag(35, 0),
		71: ag(45, 0),
		72: ag(50, 0),
		73: ag(50, 0),
		74: ag(50, 0),
	},
	fallbackType: 72,
	fallback:     ag(50, 0),
}

// bands maps usage codes (NUTZUNG) to their type tables.
var bands = map[int]band{
	10: residential,
	21: residential,
	22: residential,
	23: residential,
	30: residential,

	// commercial
	40: {
		types: map[int]model.UsageTuple{
			30: ag(35, 0),
			31: ag(30, 0),
		},
		fallbackType: 31,
		fallback:     ag(30, 0),
	},

	// public facilities
	50: {
		types: map[int]model.UsageTuple{
			12: ag(45, 0),
			13: ag(50, 0),
			14: ag(50, 0),
			28: ag(40, 0),
			41: ag(40, 0),
			42: ag(35, 0),
			43: ag(35, 0),
			44: ag(45, 50),
			45: ag(40, 0),
			46: ag(50, 50),
			47: ag(45, 0),
			49: ag(45, 50),
			50: ag(45, 50),
			51: ag(45, 0),
			60: ag(45, 0),
		},
		fallbackType: 60,
		fallback:     ag(45, 0),
	},

	60: {fallback: ag(45, 0)},

	// allotment gardens
	70: {
		types:        map[int]model.UsageTuple{59: hort(40, 75)},
		fallbackType: 59,
		fallback:     hort(40, 75),
	},

	// traffic areas
	80: {
		types: map[int]model.UsageTuple{
			91: ag(40, 0),
			92: ag(25, 0),
			93: ag(30, 0),
			94: ag(30, 0),
			99: ag(10, 0),
		},
		fallbackType: 99,
		fallback:     ag(10, 0),
	},

	// building sites
	90: {
		types:        map[int]model.UsageTuple{98: vegetation},
		fallbackType: 98,
		fallback:     vegetation,
	},

	100: {
		types:        map[int]model.UsageTuple{55: forest},
		fallbackType: 55,
		fallback:     forest,
	},

	101: {fallback: forest},
	102: {fallback: ag(60, 0)},
	110: {fallback: waterbody},
	121: {fallback: ag(40, 0)},
	122: {fallback: ag(35, 0)},
	130: {fallback: ag(50, 50)},
	140: {fallback: ag(50, 0)},
	150: {fallback: ag(50, 100)},
	160: {fallback: hort(40, 75)},
	161: {fallback: hort(40, 75)},
	162: {fallback: hort(40, 75)},
	170: {fallback: ag(10, 0)},
	171: {fallback: vegetation},
	172: {fallback: ag(40, 0)},
	173: {fallback: ag(45, 0)},
	174: {fallback: ag(60, 0)},
	180: {fallback: ag(50, 0)},
	190: {fallback: ag(40, 0)},
	200: {fallback: ag(50, 50)},
}
