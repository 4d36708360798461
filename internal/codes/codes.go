package codes

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	StatusNew  = "new"
	StatusUsed = "used"
)

var (
	ErrMalformedCode = errors.New("malformed deposit code")
	ErrUnknownCode   = errors.New("unknown code")
	ErrAlreadyUsed   = errors.New("code already used")
)

// DEP-<amount>-<token>, e.g. DEP-50-AB12CD.
var depositCodeRe = regexp.MustCompile(`^DEP-(\d{1,5})-([A-Za-z0-9]{4,16})$`)

func ParseDepositCode(raw string) (int64, string, error) {
	trimmed := strings.TrimSpace(raw)
	m := depositCodeRe.FindStringSubmatch(strings.ToUpper(trimmed))
	if m == nil {
		return 0, "", ErrMalformedCode
	}
	amount, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, "", ErrMalformedCode
	}
	return amount, "DEP-" + m[1] + "-" + m[2], nil
}

type Package struct {
	Title       string `json:"title,omitempty"`
	SignOnBonus int64  `json:"sign_on_bonus,omitempty"`
	AwardCareon int64  `json:"award_careon,omitempty"`
}

type Code struct {
	Code    string  `json:"code"`
	Status  string  `json:"status"`
	UsedBy  string  `json:"used_by,omitempty"`
	UsedAt  string  `json:"used_at,omitempty"`
	Package Package `json:"package,omitempty"`
}

type Meta struct {
	Version   string `json:"version"`
	UpdatedAt string `json:"updated_at"`
}

type Registry struct {
	Codes []Code `json:"codes"`
	Meta  Meta   `json:"meta"`
}

func NewRegistry(now time.Time) *Registry {
	return &Registry{
		Codes: []Code{},
		Meta:  Meta{Version: "v3", UpdatedAt: now.UTC().Format(time.RFC3339)},
	}
}

func (r *Registry) Find(code string) (Code, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	for _, row := range r.Codes {
		if row.Code == normalized {
			return row, true
		}
	}
	return Code{}, false
}

func (r *Registry) MarkUsed(now time.Time, code, userID string) error {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	for i := range r.Codes {
		if r.Codes[i].Code != normalized {
			continue
		}
		if r.Codes[i].Status != StatusNew {
			return ErrAlreadyUsed
		}
		ts := now.UTC().Format(time.RFC3339)
		r.Codes[i].Status = StatusUsed
		r.Codes[i].UsedBy = userID
		r.Codes[i].UsedAt = ts
		r.Meta.UpdatedAt = ts
		return nil
	}
	return ErrUnknownCode
}

func (r *Registry) Issue(now time.Time, code string, pkg Package) (Code, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return Code{}, ErrMalformedCode
	}
	if _, exists := r.Find(normalized); exists {
		return Code{}, errors.New("code already issued")
	}
	row := Code{Code: normalized, Status: StatusNew, Package: pkg}
	r.Codes = append(r.Codes, row)
	r.Meta.UpdatedAt = now.UTC().Format(time.RFC3339)
	return row, nil
}

func (r *Registry) Clone() *Registry {
	dup := *r
	dup.Codes = append([]Code(nil), r.Codes...)
	return &dup
}
