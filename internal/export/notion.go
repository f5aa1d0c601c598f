package export

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/salespulse/pkg/notion"
)

// notionWorkers bounds concurrent page pushes; the client's rate
// limiter still governs the actual request rate.
const notionWorkers = 4

// NotionExporter mirrors top-priority accounts into a Notion database
// the sales team works from.
type NotionExporter struct {
	client notion.Client
	dbID   string
}

// NewNotionExporter builds an exporter against the given database.
func NewNotionExporter(client notion.Client, dbID string) *NotionExporter {
	return &NotionExporter{client: client, dbID: dbID}
}

// Push upserts one page per row, keyed by the Account Code property.
func (e *NotionExporter) Push(ctx context.Context, rows []Row) (*Report, error) {
	report := &Report{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(notionWorkers)

	type outcome struct{ created bool }
	outcomes := make(chan outcome, len(rows))

	for _, row := range rows {
		g.Go(func() error {
			created, err := e.pushRow(gctx, row)
			if err != nil {
				return err
			}
			outcomes <- outcome{created: created}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, eris.Wrap(err, "export: notion push")
	}
	close(outcomes)

	for o := range outcomes {
		report.Pushed++
		if o.created {
			report.Created++
		} else {
			report.Updated++
		}
	}
	zap.L().Info("export: notion push complete",
		zap.Int("created", report.Created), zap.Int("updated", report.Updated))
	return report, nil
}

func (e *NotionExporter) pushRow(ctx context.Context, row Row) (created bool, err error) {
	existing, err := notion.FindPageByCode(ctx, e.client, e.dbID, row.CanonicalCode)
	if err != nil {
		return false, err
	}

	props := pageProperties(row)
	if existing != nil {
		_, err = e.client.UpdatePage(ctx, existing.ID.String(), &notionapi.PageUpdateRequest{
			Properties: props,
		})
		return false, eris.Wrapf(err, "export: update notion page for %s", row.CanonicalCode)
	}

	_, err = e.client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent:     notionapi.Parent{DatabaseID: notionapi.DatabaseID(e.dbID)},
		Properties: props,
	})
	return true, eris.Wrapf(err, "export: create notion page for %s", row.CanonicalCode)
}

func pageProperties(row Row) notionapi.Properties {
	return notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: richText(row.Name),
		},
		"Account Code": notionapi.RichTextProperty{
			RichText: richText(row.CanonicalCode),
		},
		"Segment": notionapi.SelectProperty{
			Select: notionapi.Option{Name: row.Segment},
		},
		"Health":         notionapi.NumberProperty{Number: row.HealthScore},
		"Priority":       notionapi.NumberProperty{Number: row.PriorityScore},
		"Days Overdue":   notionapi.NumberProperty{Number: float64(row.DaysOverdue)},
		"Suggested Order": notionapi.NumberProperty{Number: row.SuggestedOrder},
		"Next Step": notionapi.RichTextProperty{
			RichText: richText(row.GrowthMessage),
		},
	}
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}}
}
