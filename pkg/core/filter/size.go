package filter

import "dart_screener/pkg/models"

// Size is a company size class by total assets.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// Total asset boundaries in won.
const (
	SmallAssetsBelow = int64(5_000_000_000)
	LargeAssetsFrom  = int64(10_000_000_000_000)
)

var minROE = map[Size]float64{
	SizeSmall:  0.12,
	SizeMedium: 0.10,
	SizeLarge:  0.08,
}

// ClassifySize maps total assets to a size class.
func ClassifySize(totalAssets int64) Size {
	switch {
	case totalAssets < SmallAssetsBelow:
		return SizeSmall
	case totalAssets >= LargeAssetsFrom:
		return SizeLarge
	default:
		return SizeMedium
	}
}

// MinROE is the mean ROE a company of this size must reach.
func (s Size) MinROE() float64 {
	return minROE[s]
}

// SizeOf classifies rec by the total assets of its latest year that has them.
func SizeOf(rec *models.CompanyRecord) (Size, bool) {
	for i := len(rec.Yearly) - 1; i >= 0; i-- {
		if ta := rec.Yearly[i].TotalAssets; ta != nil {
			return ClassifySize(*ta), true
		}
	}
	return "", false
}
