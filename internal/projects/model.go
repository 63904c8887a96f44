package projects

import (
	"errors"
	"time"
)

// ErrNotFound indicates no project exists for the given ID.
var ErrNotFound = errors.New("project not found")

// Project is the brand-visibility configuration for one tracked brand.
// Created by the surrounding application; this core reads it and only ever
// touches LastAnalysisAt.
type Project struct {
	ID             string     `json:"id"`
	BrandName      string     `json:"brandName"`
	Industry       string     `json:"industry"`
	Website        string     `json:"website"`
	Competitors    []string   `json:"competitors"`
	Keywords       []string   `json:"keywords"`
	Providers      []string   `json:"providers"`
	QueryMode      string     `json:"queryMode"`
	QueryCount     int        `json:"queryCount"`
	ManualQueries  []string   `json:"manualQueries"`
	Languages      []string   `json:"languages"`
	Regions        []string   `json:"regions"`
	LastAnalysisAt *time.Time `json:"lastAnalysisAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}
