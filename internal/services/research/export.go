package research

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/magabrotheeeer/accelerator-platform/internal/lib/sl"
	"github.com/magabrotheeeer/accelerator-platform/internal/models"
	"github.com/magabrotheeeer/accelerator-platform/internal/rbac"
)

const exportSheet = "Research"

var exportHeader = []any{"Phase", "Stage", "Order", "Question", "Type", "Required", "Answer", "Answered at"}

// Export формирует XLSX со всеми вопросами учебного плана и ответами трекера проекта.
func (s *Service) Export(ctx context.Context, actor *rbac.Identity, projectID int64) (*bytes.Buffer, error) {
	const op = "research.Export"
	log := s.log.With(slog.String("op", op), slog.Int64("project_id", projectID))

	_, tracker, err := s.tracker(ctx, actor, projectID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	questions, err := s.repo.ListAllQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	answers, err := s.repo.ListAnswers(ctx, tracker.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	buf, err := buildWorkbook(questions, answers)
	if err != nil {
		log.Error("failed to build workbook", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return buf, nil
}

func buildWorkbook(questions []*models.Question, answers []*models.Answer) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(exportSheet, "D", "D", 60); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(exportSheet, "G", "G", 40); err != nil {
		return nil, err
	}

	byQuestion := make(map[int64]*models.Answer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	for i, q := range questions {
		row := []any{q.Phase, q.Stage, q.Order, q.Text, string(q.Type), q.Required, "", ""}
		if a, ok := byQuestion[q.ID]; ok {
			row[6] = a.Text
			row[7] = a.CreatedAt.UTC().Format("2006-01-02 15:04:05")
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	return f.WriteToBuffer()
}
