// Package seed loads the embedded development catalogue.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/iliyamo/study-abroad-marketplace/internal/model"
	"github.com/iliyamo/study-abroad-marketplace/internal/repository"
	"github.com/iliyamo/study-abroad-marketplace/internal/utils"
)

//go:embed seed.yaml
var defaultCatalogue []byte

// Catalogue mirrors seed.yaml.
type Catalogue struct {
	Users        []User        `yaml:"users"`
	Institutions []Institution `yaml:"institutions"`
}

type User struct {
	Email           string `yaml:"email"`
	Password        string `yaml:"password"`
	FirstName       string `yaml:"first_name"`
	LastName        string `yaml:"last_name"`
	Phone           string `yaml:"phone"`
	Country         string `yaml:"country"`
	Role            string `yaml:"role"`
	EducationLevel  string `yaml:"education_level"`
	FieldOfInterest string `yaml:"field_of_interest"`
	Verified        bool   `yaml:"verified"`
}

type Institution struct {
	Name           string    `yaml:"name"`
	ShortName      string    `yaml:"short_name"`
	Country        string    `yaml:"country"`
	CountryCode    string    `yaml:"country_code"`
	City           string    `yaml:"city"`
	Type           string    `yaml:"type"`
	Website        string    `yaml:"website"`
	WorldRanking   int       `yaml:"world_ranking"`
	ApplicationFee string    `yaml:"application_fee"`
	Description    string    `yaml:"description"`
	Programs       []Program `yaml:"programs"`
}

type Program struct {
	Name           string `yaml:"name"`
	Code           string `yaml:"code"`
	DegreeType     string `yaml:"degree_type"`
	FieldOfStudy   string `yaml:"field_of_study"`
	DurationMonths int    `yaml:"duration_months"`
	TuitionFee     string `yaml:"tuition_fee"`
	Currency       string `yaml:"currency"`
	Scholarships   bool   `yaml:"scholarships"`
}

// Report counts the rows a Load inserted and the ones it found already present.
type Report struct {
	Users        int `json:"users"`
	Institutions int `json:"institutions"`
	Programs     int `json:"programs"`
	Skipped      int `json:"skipped"`
}

// Parse decodes a catalogue document.
func Parse(raw []byte) (Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Catalogue{}, fmt.Errorf("parse seed: %w", err)
	}
	return c, nil
}

// Default returns the embedded catalogue.
func Default() (Catalogue, error) { return Parse(defaultCatalogue) }

// Load inserts c. Users are matched by email and institutions by name, so
// running it twice inserts nothing the second time.
func Load(ctx context.Context, db *gorm.DB, c Catalogue, bcryptCost int) (Report, error) {
	var rep Report
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepo(tx)
		for _, su := range c.Users {
			n, err := loadUser(ctx, users, su, bcryptCost)
			if err != nil {
				return err
			}
			rep.Users += n
			rep.Skipped += 1 - n
		}
		for _, si := range c.Institutions {
			inserted, programs, err := loadInstitution(ctx, tx, si)
			if err != nil {
				return err
			}
			if !inserted {
				rep.Skipped++
				continue
			}
			rep.Institutions++
			rep.Programs += programs
		}
		return nil
	})
	return rep, err
}

func loadUser(ctx context.Context, users *repository.UserRepo, su User, cost int) (int, error) {
	email := strings.ToLower(strings.TrimSpace(su.Email))
	if _, err := users.GetByEmail(ctx, email); err == nil {
		return 0, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return 0, err
	}
	role, err := model.ParseUserRole(su.Role)
	if err != nil {
		return 0, fmt.Errorf("seed user %s: %w", email, err)
	}
	hash, err := utils.HashPassword(su.Password, cost)
	if err != nil {
		return 0, err
	}
	u := model.User{
		Email:           email,
		PasswordHash:    hash,
		FirstName:       su.FirstName,
		LastName:        su.LastName,
		Phone:           su.Phone,
		Country:         strings.ToUpper(su.Country),
		Role:            role,
		EducationLevel:  su.EducationLevel,
		FieldOfInterest: su.FieldOfInterest,
		IsActive:        true,
		IsVerified:      su.Verified,
	}
	if err := users.Create(ctx, &u); err != nil {
		return 0, fmt.Errorf("seed user %s: %w", email, err)
	}
	return 1, nil
}

func loadInstitution(ctx context.Context, tx *gorm.DB, si Institution) (bool, int, error) {
	var count int64
	if err := tx.WithContext(ctx).Model(&model.Institution{}).Where("name = ?", si.Name).Count(&count).Error; err != nil {
		return false, 0, err
	}
	if count > 0 {
		return false, 0, nil
	}
	fee, err := ParseCents(si.ApplicationFee)
	if err != nil {
		return false, 0, fmt.Errorf("seed institution %s: %w", si.Name, err)
	}
	inst := model.Institution{
		Name:                 si.Name,
		ShortName:            si.ShortName,
		Description:          si.Description,
		Country:              si.Country,
		CountryCode:          strings.ToUpper(si.CountryCode),
		City:                 si.City,
		Website:              si.Website,
		Type:                 si.Type,
		ApplicationFeeCents:  fee,
		AcceptsInternational: true,
		IsActive:             true,
		IsVerified:           true,
	}
	if si.WorldRanking > 0 {
		r := si.WorldRanking
		inst.WorldRanking = &r
	}
	if err := repository.NewInstitutionRepo(tx).Create(ctx, &inst); err != nil {
		return false, 0, fmt.Errorf("seed institution %s: %w", si.Name, err)
	}

	programs := repository.NewProgramRepo(tx)
	for _, sp := range si.Programs {
		tuition, err := ParseCents(sp.TuitionFee)
		if err != nil {
			return false, 0, fmt.Errorf("seed program %s: %w", sp.Name, err)
		}
		currency := strings.ToUpper(sp.Currency)
		if currency == "" {
			currency = model.DefaultCurrency
		}
		p := model.Program{
			InstitutionID:         inst.ID,
			Name:                  sp.Name,
			Code:                  sp.Code,
			DegreeType:            strings.ToLower(sp.DegreeType),
			FieldOfStudy:          sp.FieldOfStudy,
			DurationMonths:        sp.DurationMonths,
			TuitionFeeCents:       tuition,
			Currency:              currency,
			ScholarshipsAvailable: sp.Scholarships,
			IsActive:              true,
		}
		if err := programs.Create(ctx, &p); err != nil {
			return false, 0, fmt.Errorf("seed program %s: %w", sp.Name, err)
		}
	}
	return true, len(si.Programs), nil
}

// ParseCents converts a decimal amount with at most two fraction digits
// ("150", "118.5", "58160.00") into minor units.
func ParseCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimals", s)
	}
	frac += strings.Repeat("0", 2-len(frac))
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w < 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return w*100 + f, nil
}
