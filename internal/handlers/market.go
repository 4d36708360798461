package handlers

import (
	"net/http"

	"starlight/internal/careon"
	"starlight/internal/market"
)

type packageView struct {
	Name        string `json:"name"`
	PriceUSD    string `json:"price_usd"`
	Careon      int64  `json:"careon"`
	Display     string `json:"display"`
	RatePerUnit string `json:"usd_per_careon"`
}

func (h *Handler) ListPackages(w http.ResponseWriter, r *http.Request) {
	packages := market.Catalog()
	views := make([]packageView, 0, len(packages))
	for _, p := range packages {
		views = append(views, packageView{
			Name:        p.Name,
			PriceUSD:    p.PriceUSD.StringFixed(2),
			Careon:      p.Careon,
			Display:     careon.Format(p.Careon),
			RatePerUnit: p.RatePerCareon().String(),
		})
	}
	respondJSON(w, http.StatusOK, views)
}
