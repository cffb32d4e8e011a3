package service

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

// ReportService exports expense data as an Excel workbook
type ReportService interface {
	WriteExpenseReport(ctx context.Context, w io.Writer) error
}

type reportServiceImpl struct {
	expenseRepo  port.ExpenseRepository
	settingsRepo port.SettingsRepository
	logger       Logger
}

// NewReportService creates a new ReportService
func NewReportService(expenseRepo port.ExpenseRepository, settingsRepo port.SettingsRepository, logger Logger) ReportService {
	return &reportServiceImpl{
		expenseRepo:  expenseRepo,
		settingsRepo: settingsRepo,
		logger:       logger,
	}
}

// reportPageSize bounds a single export; exports beyond this are paged
// through repeated List calls.
const reportPageSize = 500

// WriteExpenseReport writes a two-sheet workbook: a summary of totals by
// status and category in the company currency, and the full expense
// listing.
func (s *reportServiceImpl) WriteExpenseReport(ctx context.Context, w io.Writer) error {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return fmt.Errorf("load company settings: %w", err)
	}

	var expenses []*entity.Expense
	for offset := 0; ; offset += reportPageSize {
		page, err := s.expenseRepo.List(ctx, reportPageSize, offset)
		if err != nil {
			return fmt.Errorf("list expenses: %w", err)
		}
		expenses = append(expenses, page...)
		if len(page) < reportPageSize {
			break
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := s.fillSummarySheet(f, settings, expenses); err != nil {
		return err
	}
	if err := s.fillListingSheet(f, settings, expenses); err != nil {
		return err
	}

	// Drop the default sheet left over from NewFile
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("Expense report generated", "expenses", len(expenses))
	return nil
}

func (s *reportServiceImpl) fillSummarySheet(f *excelize.File, settings *entity.Settings, expenses []*entity.Expense) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	byStatus := make(map[entity.Status]float64)
	byCategory := make(map[entity.Category]float64)
	for _, e := range expenses {
		byStatus[e.Status] += e.ConvertedAmount
		byCategory[e.Category] += e.ConvertedAmount
	}

	s.setCell(f, sheet, "A1", "Expense Summary")
	s.setCell(f, sheet, "A2", fmt.Sprintf("All amounts in %s", settings.DefaultCurrency))

	row := 4
	s.setCell(f, sheet, fmt.Sprintf("A%d", row), "Totals by status")
	row++
	for _, status := range []entity.Status{entity.StatusPending, entity.StatusApproved, entity.StatusRejected} {
		s.setCell(f, sheet, fmt.Sprintf("A%d", row), status.String())
		s.setCell(f, sheet, fmt.Sprintf("B%d", row), fmt.Sprintf("%.2f", byStatus[status]))
		row++
	}

	row++
	s.setCell(f, sheet, fmt.Sprintf("A%d", row), "Totals by category")
	row++
	for category, total := range byCategory {
		s.setCell(f, sheet, fmt.Sprintf("A%d", row), category.String())
		s.setCell(f, sheet, fmt.Sprintf("B%d", row), fmt.Sprintf("%.2f", total))
		row++
	}

	return nil
}

func (s *reportServiceImpl) fillListingSheet(f *excelize.File, settings *entity.Settings, expenses []*entity.Expense) error {
	const sheet = "Expenses"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	headers := []string{"ID", "Employee", "Category", "Amount", "Currency",
		fmt.Sprintf("Amount (%s)", settings.DefaultCurrency), "Status", "Submitted", "Approvers"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		s.setCell(f, sheet, cell, h)
	}

	for rowIdx, e := range expenses {
		values := []interface{}{
			e.ID,
			e.EmployeeID,
			e.Category.String(),
			e.Amount,
			e.Currency,
			e.ConvertedAmount,
			e.Status.String(),
			e.SubmittedAt.Format("2006-01-02 15:04"),
			len(e.Approvers),
		}
		for colIdx, v := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			s.setCell(f, sheet, cell, v)
		}
	}

	return nil
}

func (s *reportServiceImpl) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		s.logger.Error("Failed to set cell", "sheet", sheet, "cell", cell, "error", err)
	}
}
