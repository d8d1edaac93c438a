package resolve

import (
	"strings"
)

// Signal names reported in a Breakdown.
const (
	SignalPhoneExact       = "phone_exact"
	SignalPhoneLast7       = "phone_last7"
	SignalNameExact        = "name_exact"
	SignalNameSubstring    = "name_substring"
	SignalNameSharedWords  = "name_shared_words"
	SignalNameSharedWord   = "name_shared_word"
	SignalAddressExact     = "address_exact"
	SignalStreetName       = "street_name"
	SignalAddressSubstring = "address_substring"
	SignalCityExact        = "city_exact"
	SignalStreetCityBonus  = "street_city_bonus"
)

const (
	phoneExactPoints       = 15
	phoneLast7Points       = 10
	nameExactPoints        = 10
	addressExactPoints     = 10
	streetNamePoints       = 7
	addressSubstringPoints = 5
	cityExactPoints        = 5
	streetCityBonusPoints  = 3
)

// Signal is one scoring rule that fired for a pair.
type Signal struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// Breakdown explains a score.
type Breakdown struct {
	Score   int      `json:"score"`
	Signals []Signal `json:"signals"`
}

func (b *Breakdown) add(name string, points int) {
	if points <= 0 {
		return
	}
	b.Score += points
	b.Signals = append(b.Signals, Signal{Name: name, Points: points})
}

// Features are the normalized, comparison-ready fields of one side of a pair.
type Features struct {
	Name    string
	Tokens  map[string]struct{}
	Address string
	Street  string
	City    string
	Phone   string
}

// NewFeatures normalizes raw name, address, city and phone fields.
func NewFeatures(name, address, city, phone string) Features {
	n := NormalizeText(name)
	return Features{
		Name:    n,
		Tokens:  nameTokens(n),
		Address: NormalizeAddress(address),
		Street:  ExtractStreetName(address),
		City:    NormalizeText(city),
		Phone:   NormalizePhone(phone),
	}
}

// IdentityFeatures returns the features of a canonical identity.
func IdentityFeatures(id FacilityIdentity) Features {
	return NewFeatures(id.Name, id.Address, id.City, id.Phone)
}

// GroupFeatures returns the features of an external group.
func GroupFeatures(g *ExternalGroup) Features {
	return NewFeatures(g.Name, g.Address, g.City, g.Phone)
}

// Scorer computes deterministic, additive similarity scores.
type Scorer struct {
	cfg     Config
	generic map[string]struct{}
}

// NewScorer creates a Scorer. Zero fields of cfg are filled from the preset of
// its mode; the result must pass Validate.
func NewScorer(cfg Config) (*Scorer, error) {
	cfg, err := cfg.WithDefaults()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	generic := make(map[string]struct{}, len(cfg.GenericWords))
	for _, w := range cfg.GenericWords {
		generic[NormalizeText(w)] = struct{}{}
	}
	return &Scorer{cfg: cfg, generic: generic}, nil
}

// Config returns the effective configuration.
func (s *Scorer) Config() Config {
	return s.cfg
}

// Accepts reports whether score reaches the minimum acceptance threshold.
func (s *Scorer) Accepts(score int) bool {
	return score >= s.cfg.MinScore
}

// Score returns the similarity score between a canonical identity and an external group.
func (s *Scorer) Score(id FacilityIdentity, g *ExternalGroup) int {
	return s.Compare(IdentityFeatures(id), GroupFeatures(g)).Score
}

// Explain returns the score together with the signals that produced it.
func (s *Scorer) Explain(id FacilityIdentity, g *ExternalGroup) Breakdown {
	return s.Compare(IdentityFeatures(id), GroupFeatures(g))
}

// Compare scores two pre-normalized feature sets.
func (s *Scorer) Compare(a, b Features) Breakdown {
	var out Breakdown
	out.Signals = []Signal{}

	if s.cfg.Mode == ModeFull {
		s.scorePhone(&out, a, b)
	}
	s.scoreName(&out, a, b)
	if s.cfg.Mode == ModeFull {
		s.scoreAddress(&out, a, b)
	}
	return out
}

func (s *Scorer) scorePhone(out *Breakdown, a, b Features) {
	if a.Phone == "" || b.Phone == "" {
		return
	}
	if a.Phone == b.Phone {
		out.add(SignalPhoneExact, phoneExactPoints)
		return
	}
	if len(a.Phone) >= 7 && len(b.Phone) >= 7 && a.Phone[len(a.Phone)-7:] == b.Phone[len(b.Phone)-7:] {
		out.add(SignalPhoneLast7, phoneLast7Points)
	}
}

func (s *Scorer) scoreName(out *Breakdown, a, b Features) {
	if a.Name == "" || b.Name == "" {
		return
	}
	switch {
	case a.Name == b.Name:
		out.add(SignalNameExact, nameExactPoints)
	case strings.Contains(a.Name, b.Name) || strings.Contains(b.Name, a.Name):
		out.add(SignalNameSubstring, s.cfg.NameSubstringPoints)
	default:
		switch n := s.sharedSignificant(a.Tokens, b.Tokens); {
		case n >= 2:
			out.add(SignalNameSharedWords, s.cfg.SharedWordsPoints)
		case n == 1:
			out.add(SignalNameSharedWord, s.cfg.SharedWordPoints)
		}
	}
}

// sharedSignificant counts tokens present in both sets, ignoring generic words.
// The sets are only used for membership, so the count does not depend on map order.
func (s *Scorer) sharedSignificant(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for tok := range a {
		if _, ok := b[tok]; !ok {
			continue
		}
		if _, generic := s.generic[tok]; generic {
			continue
		}
		n++
	}
	return n
}

func (s *Scorer) scoreAddress(out *Breakdown, a, b Features) {
	streetEqual := a.Street != "" && b.Street != "" && a.Street == b.Street
	cityEqual := a.City != "" && b.City != "" && a.City == b.City

	if a.Address != "" && b.Address != "" {
		switch {
		case a.Address == b.Address:
			out.add(SignalAddressExact, addressExactPoints)
		case streetEqual:
			out.add(SignalStreetName, streetNamePoints)
		case strings.Contains(a.Address, b.Address) || strings.Contains(b.Address, a.Address):
			out.add(SignalAddressSubstring, addressSubstringPoints)
		}
	}

	if cityEqual {
		out.add(SignalCityExact, cityExactPoints)
	}
	if streetEqual && cityEqual {
		out.add(SignalStreetCityBonus, streetCityBonusPoints)
	}
}
