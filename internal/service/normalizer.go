package service

import (
	"bytes"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"

	"neowatch/internal/clients"
	"neowatch/internal/models"
)

const (
	dateLayout         = "2006-01-02"
	approachFullLayout = "2006-Jan-02 15:04"
)

var ErrMissingDesignation = errors.New("comet entry has no designation")

// NormalizeIssue is a field the feed sent in a form we could not use. The
// field falls back to its zero value.
type NormalizeIssue struct {
	Field string
	Value string
}

// NormalizeObject maps one feed object to a TrackedObject. Bad numeric fields
// become 0 and are reported as issues; the object itself is never rejected.
func NormalizeObject(raw clients.NEOObject, syncedAt time.Time) (models.TrackedObject, []NormalizeIssue) {
	var issues []NormalizeIssue

	referenceID := strings.TrimSpace(raw.ID)
	if referenceID == "" {
		referenceID = strings.TrimSpace(raw.NEOReferenceID)
	}

	minKm := raw.EstimatedDiameter.Kilometers.EstimatedDiameterMin
	maxKm := raw.EstimatedDiameter.Kilometers.EstimatedDiameterMax

	obj := models.TrackedObject{
		ReferenceID:       referenceID,
		DisplayName:       raw.Name,
		JPLURL:            raw.NASAJPLURL,
		AbsoluteMagnitude: raw.AbsoluteMagnitudeH,
		DiameterMinKm:     minKm,
		DiameterMaxKm:     maxKm,
		DiameterAvgKm:     (minKm + maxKm) / 2,
		IsHazardous:       raw.IsPotentiallyHazardousAsteroid,
		IsMonitored:       raw.IsSentryObject,
		Approaches:        make(datatypes.JSONSlice[models.ApproachRecord], 0, len(raw.CloseApproachData)),
		LastSyncedAt:      syncedAt,
	}

	if isJSONValue(raw.OrbitalData) {
		obj.OrbitalMetadata = datatypes.JSON(raw.OrbitalData)
	}

	for _, ca := range raw.CloseApproachData {
		approach, approachIssues := normalizeApproach(ca)
		issues = append(issues, approachIssues...)
		obj.Approaches = append(obj.Approaches, approach)
	}

	return obj, issues
}

func normalizeApproach(ca clients.CloseApproach) (models.ApproachRecord, []NormalizeIssue) {
	var issues []NormalizeIssue

	approach := models.ApproachRecord{
		ApproachDate: strings.TrimSpace(ca.CloseApproachDate),
		OrbitingBody: ca.OrbitingBody,
	}
	if !ValidDate(approach.ApproachDate) {
		issues = append(issues, NormalizeIssue{Field: "close_approach_date", Value: ca.CloseApproachDate})
	}

	// Точное время: epoch в миллисекундах, иначе полная строка даты
	if ca.EpochDateCloseApproach != nil {
		t := time.UnixMilli(*ca.EpochDateCloseApproach).UTC()
		approach.ApproachDateTime = &t
	} else if ca.CloseApproachDateFull != "" {
		if t, err := time.Parse(approachFullLayout, ca.CloseApproachDateFull); err == nil {
			approach.ApproachDateTime = &t
		} else {
			issues = append(issues, NormalizeIssue{Field: "close_approach_date_full", Value: ca.CloseApproachDateFull})
		}
	}

	var ok bool
	if approach.RelativeVelocityKmS, ok = parseNumber(ca.RelativeVelocity.KilometersPerSecond); !ok {
		issues = append(issues, NormalizeIssue{Field: "relative_velocity.kilometers_per_second", Value: ca.RelativeVelocity.KilometersPerSecond})
	}
	if approach.MissDistanceKm, ok = parseNumber(ca.MissDistance.Kilometers); !ok {
		issues = append(issues, NormalizeIssue{Field: "miss_distance.kilometers", Value: ca.MissDistance.Kilometers})
	}
	// astronomical необязателен
	if ca.MissDistance.Astronomical != "" {
		if approach.MissDistanceAU, ok = parseNumber(ca.MissDistance.Astronomical); !ok {
			issues = append(issues, NormalizeIssue{Field: "miss_distance.astronomical", Value: ca.MissDistance.Astronomical})
		}
	}

	return approach, issues
}

// NormalizeComet maps one catalogue entry to a CometRecord. An entry without
// a designation cannot be keyed and is rejected.
func NormalizeComet(raw clients.CometEntry, syncedAt time.Time) (models.CometRecord, error) {
	designation := strings.TrimSpace(raw.Designation)
	if designation == "" {
		return models.CometRecord{}, ErrMissingDesignation
	}

	comet := models.CometRecord{
		Designation:   designation,
		DisplayName:   raw.Name,
		DiscoveryDate: normalizeDiscoveryDate(raw.DiscoveryDate),
		LastSyncedAt:  syncedAt,
	}
	if isJSONValue(raw.OrbitalElements) {
		comet.OrbitalElements = datatypes.JSON(raw.OrbitalElements)
	}

	return comet, nil
}

// normalizeDiscoveryDate keeps only the YYYY-MM-DD part; anything else is dropped.
func normalizeDiscoveryDate(raw *string) *string {
	if raw == nil {
		return nil
	}
	s := strings.TrimSpace(*raw)
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	if !ValidDate(s) {
		return nil
	}
	return &s
}

// ValidDate reports whether s is a calendar date in YYYY-MM-DD form.
func ValidDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func isJSONValue(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
