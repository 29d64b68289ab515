package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"neowatch/internal/repository"
	"neowatch/internal/utils"
)

const maxExportRows = 10000

var (
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrNoData            = errors.New("no data found for the specified range")
)

type ExportFile struct {
	Path        string `json:"-"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Records     int    `json:"records"`
}

type ReportService interface {
	// ExportAssessments writes every assessment on or after fromDate
	// (all when empty) to a file in the output directory.
	ExportAssessments(ctx context.Context, format, fromDate string) (*ExportFile, error)
}

type reportService struct {
	repo      repository.NEORepository
	outputDir string
	clock     clockwork.Clock
	log       *zap.Logger
}

func NewReportService(repo repository.NEORepository, outputDir string, clock clockwork.Clock, log *zap.Logger) ReportService {
	if outputDir == "" {
		outputDir = "./data/exports"
	}

	// Создаем директорию если не существует
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		log.Warn("Failed to create export directory", zap.String("dir", outputDir), zap.Error(err))
	}

	return &reportService{
		repo:      repo,
		outputDir: outputDir,
		clock:     clock,
		log:       log.Named("report"),
	}
}

func (s *reportService) ExportAssessments(ctx context.Context, format, fromDate string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	var ext, contentType string
	switch format {
	case "csv":
		ext, contentType = "csv", "text/csv"
	case "xlsx", "excel":
		ext, contentType = "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "json":
		ext, contentType = "json", "application/json"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	rows, err := s.repo.ListAssessmentsFrom(ctx, fromDate, maxExportRows)
	if err != nil {
		return nil, fmt.Errorf("failed to load assessments: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	now := s.clock.Now().UTC()
	// Суффикс, чтобы экспорты в одну секунду не перезаписывали друг друга
	filename := fmt.Sprintf("impact_assessments_%s_%s.%s", now.Format("20060102_150405"), uuid.NewString()[:8], ext)
	path := filepath.Join(s.outputDir, filename)

	switch ext {
	case "csv":
		err = saveAssessmentsCSV(path, rows)
	case "xlsx":
		err = utils.CreateAssessmentWorkbook(path, rows, now)
	case "json":
		err = utils.SaveAsJSON(path, rows)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write %s export: %w", ext, err)
	}

	s.log.Info("Assessment export generated", zap.String("file", filename), zap.Int("records", len(rows)))

	return &ExportFile{
		Path:        path,
		Filename:    filename,
		ContentType: contentType,
		Records:     len(rows),
	}, nil
}

func saveAssessmentsCSV(path string, rows []repository.AssessmentExportRow) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	// Записываем заголовок
	header := []string{
		"reference_id", "display_name", "is_hazardous", "closest_approach_date",
		"miss_distance_km", "relative_velocity_km_s", "kinetic_energy_megatons",
		"impact_category", "threat_level", "impact_probability",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	// Записываем данные
	for _, row := range rows {
		record := []string{
			row.ReferenceID,
			row.DisplayName,
			strconv.FormatBool(row.IsHazardous),
			row.ClosestApproachDate,
			strconv.FormatFloat(row.MissDistanceKm, 'f', 2, 64),
			strconv.FormatFloat(row.RelativeVelocityKmS, 'f', 4, 64),
			strconv.FormatFloat(row.KineticEnergyMegatons, 'g', 6, 64),
			row.ImpactCategory,
			row.ThreatLevel,
			strconv.FormatFloat(row.ImpactProbability, 'g', 6, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
