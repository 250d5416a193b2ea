package models

import (
	"fmt"
	"net/url"
)

type TierName string

const (
	TierBasic   TierName = "Basic"
	TierPremium TierName = "Premium"
	TierPro     TierName = "Pro"
)

// Tier is a membership plan. The catalog is fixed at startup.
type Tier struct {
	Name            TierName `json:"name"`
	Currency        string   `json:"currency"`
	PriceMinorUnits int      `json:"price_minor_units"`
	Quota           int      `json:"quota"`
}

// Label renders the tier the way the membership buttons show it.
func (t Tier) Label() string {
	return fmt.Sprintf("%s: $%d.%02d/month", t.Name, t.PriceMinorUnits/100, t.PriceMinorUnits%100)
}

var tiers = []Tier{
	{Name: TierBasic, Currency: "USD", PriceMinorUnits: 999, Quota: 5},
	{Name: TierPremium, Currency: "USD", PriceMinorUnits: 3999, Quota: 7},
	{Name: TierPro, Currency: "USD", PriceMinorUnits: 6999, Quota: 10},
}

// Tiers returns the catalog in display order.
func Tiers() []Tier {
	return append([]Tier(nil), tiers...)
}

func LookupTier(name TierName) (Tier, bool) {
	for _, t := range tiers {
		if t.Name == name {
			return t, true
		}
	}
	return Tier{}, false
}

// QuotaFor maps a tier to the number of images requested per generation.
// Anything outside the catalog gets the Basic quota.
func QuotaFor(name TierName) int {
	switch name {
	case TierPremium:
		return 7
	case TierPro:
		return 10
	default:
		return 5
	}
}

type ImageReference struct {
	URL string `json:"url"`
}

// NewImageReference accepts only absolute URIs.
func NewImageReference(raw string) (ImageReference, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ImageReference{}, fmt.Errorf("parse image url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return ImageReference{}, fmt.Errorf("image url is not absolute: %q", raw)
	}
	return ImageReference{URL: raw}, nil
}
