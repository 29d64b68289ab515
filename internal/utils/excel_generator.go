package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"neowatch/internal/repository"
)

const assessmentSheet = "Assessments"

var assessmentHeaders = []string{
	"Reference ID",
	"Name",
	"Hazardous",
	"Approach Date",
	"Miss Distance (km)",
	"Velocity (km/s)",
	"Energy (Mt)",
	"Category",
	"Threat Level",
	"Impact Probability",
}

// CreateAssessmentWorkbook создает Excel файл с оценками угрозы
func CreateAssessmentWorkbook(filepath string, rows []repository.AssessmentExportRow, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", assessmentSheet); err != nil {
		return err
	}

	// Устанавливаем заголовки
	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	for i, header := range assessmentHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(assessmentSheet, cell, header)
		f.SetCellStyle(assessmentSheet, cell, cell, headerStyle)
	}

	distanceStyle := getNumberStyle(f, "#,##0")
	decimalStyle := getNumberStyle(f, "0.00")
	probabilityStyle := getNumberStyle(f, "0.00E+00")

	// Заполняем данные
	for rowIdx, row := range rows {
		rowNum := rowIdx + 2 // Заголовок в первой строке

		values := []interface{}{
			row.ReferenceID,
			row.DisplayName,
			row.IsHazardous,
			row.ClosestApproachDate,
			row.MissDistanceKm,
			row.RelativeVelocityKmS,
			row.KineticEnergyMegatons,
			row.ImpactCategory,
			row.ThreatLevel,
			row.ImpactProbability,
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowNum)
		if err := f.SetSheetRow(assessmentSheet, cell, &values); err != nil {
			return err
		}

		f.SetCellStyle(assessmentSheet, fmt.Sprintf("E%d", rowNum), fmt.Sprintf("E%d", rowNum), distanceStyle)
		f.SetCellStyle(assessmentSheet, fmt.Sprintf("F%d", rowNum), fmt.Sprintf("G%d", rowNum), decimalStyle)
		f.SetCellStyle(assessmentSheet, fmt.Sprintf("J%d", rowNum), fmt.Sprintf("J%d", rowNum), probabilityStyle)
	}

	for i := 1; i <= len(assessmentHeaders); i++ {
		colName, _ := excelize.ColumnNumberToName(i)
		f.SetColWidth(assessmentSheet, colName, colName, 20)
	}

	if len(rows) > 0 {
		lastRow := len(rows) + 1

		// Красный для высокого уровня угрозы
		highThreatRule := []excelize.ConditionalFormatOptions{
			{
				Type:     "cell",
				Criteria: "==",
				Value:    `"high"`,
				Format:   getConditionalFormatStyle(f, "#FFCCCC"),
			},
		}
		if err := f.SetConditionalFormat(assessmentSheet, fmt.Sprintf("I2:I%d", lastRow), highThreatRule); err != nil {
			return err
		}

		// Желтый для среднего
		mediumThreatRule := []excelize.ConditionalFormatOptions{
			{
				Type:     "cell",
				Criteria: "==",
				Value:    `"medium"`,
				Format:   getConditionalFormatStyle(f, "#FFF2CC"),
			},
		}
		if err := f.SetConditionalFormat(assessmentSheet, fmt.Sprintf("I2:I%d", lastRow), mediumThreatRule); err != nil {
			return err
		}
	}

	if len(rows) > 1 {
		if err := createEnergyChart(f, len(rows)); err != nil {
			return err
		}
	}

	if err := createInfoSheet(f, rows, generatedAt); err != nil {
		return err
	}

	index, _ := f.GetSheetIndex(assessmentSheet)
	f.SetActiveSheet(index)

	return f.SaveAs(filepath)
}

func getNumberStyle(f *excelize.File, format string) int {
	style, err := f.NewStyle(&excelize.Style{
		CustomNumFmt: &format,
	})
	if err != nil {
		return 0
	}
	return style
}

func createEnergyChart(f *excelize.File, count int) error {
	lastRow := count + 1
	chart := &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{
			{
				Name:       "Kinetic Energy (Mt)",
				Categories: fmt.Sprintf("%s!$A$2:$A$%d", assessmentSheet, lastRow),
				Values:     fmt.Sprintf("%s!$G$2:$G$%d", assessmentSheet, lastRow),
			},
		},
		Title: []excelize.RichTextRun{
			{
				Text: "Kinetic Energy by Object",
			},
		},
		XAxis: excelize.ChartAxis{
			MajorGridLines: true,
		},
		YAxis: excelize.ChartAxis{
			MajorGridLines: true,
		},
		Dimension: excelize.ChartDimension{
			Width:  600,
			Height: 400,
		},
	}

	return f.AddChart(assessmentSheet, "L2", chart)
}

func createInfoSheet(f *excelize.File, rows []repository.AssessmentExportRow, generatedAt time.Time) error {
	if _, err := f.NewSheet("Info"); err != nil {
		return err
	}

	var hazardous, high int
	var maxEnergy float64
	for _, r := range rows {
		if r.IsHazardous {
			hazardous++
		}
		if r.ThreatLevel == "high" {
			high++
		}
		if r.KineticEnergyMegatons > maxEnergy {
			maxEnergy = r.KineticEnergyMegatons
		}
	}

	dateRange := "-"
	if len(rows) > 0 {
		dateRange = fmt.Sprintf("%s to %s", rows[0].ClosestApproachDate, rows[len(rows)-1].ClosestApproachDate)
	}

	// Порядок строк фиксирован
	metadata := [][2]interface{}{
		{"Report Generated", generatedAt.UTC().Format("2006-01-02 15:04:05")},
		{"Total Records", len(rows)},
		{"Approach Dates", dateRange},
		{"Hazardous Rows", hazardous},
		{"High Threat Rows", high},
		{"Max Energy (Mt)", maxEnergy},
	}

	for i, entry := range metadata {
		f.SetCellValue("Info", fmt.Sprintf("A%d", i+1), entry[0])
		f.SetCellValue("Info", fmt.Sprintf("B%d", i+1), entry[1])
	}
	return nil
}

// SaveAsJSON сохраняет данные в JSON файл
func SaveAsJSON(filepath string, data interface{}) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// getConditionalFormatStyle создает стиль для условного форматирования
func getConditionalFormatStyle(f *excelize.File, color string) *int {
	style, err := f.NewConditionalStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{color},
			Pattern: 1,
		},
	})
	if err != nil {
		return nil
	}
	return &style
}
