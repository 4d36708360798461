package market

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrUnknownPackage = errors.New("unknown package")

type Package struct {
	Name     string
	PriceUSD decimal.Decimal
	Careon   int64
}

var catalog = []Package{
	{Name: "Explorer Pack", PriceUSD: decimal.RequireFromString("4.99"), Careon: 500},
	{Name: "Voyager Pack", PriceUSD: decimal.RequireFromString("9.99"), Careon: 1200},
	{Name: "Frontier Pack", PriceUSD: decimal.RequireFromString("19.99"), Careon: 2600},
	{Name: "Zenith Pack", PriceUSD: decimal.RequireFromString("49.99"), Careon: 7200},
}

func Catalog() []Package {
	return append([]Package(nil), catalog...)
}

func Find(name string) (Package, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, p := range catalog {
		if strings.ToLower(p.Name) == needle {
			return p, nil
		}
	}
	return Package{}, ErrUnknownPackage
}

func (p Package) RatePerCareon() decimal.Decimal {
	return p.PriceUSD.Div(decimal.NewFromInt(p.Careon)).RoundBank(6)
}
