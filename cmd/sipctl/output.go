package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/simaogato/sipledger-backend/internal/cli"
)

// str reads a string field of a decoded response; missing fields render as "-".
func str(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return "-"
	default:
		return fmt.Sprint(v)
	}
}

func sub(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

func list(m map[string]any, key string) []map[string]any {
	raw, _ := m[key].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if v, ok := item.(map[string]any); ok {
			out = append(out, v)
		}
	}
	return out
}

func printPlan(w io.Writer, p map[string]any) {
	fmt.Fprint(w, cli.RenderKV(
		[2]string{"Plan", str(p, "id")},
		[2]string{"User", str(p, "user_id")},
		[2]string{"Instrument", str(p, "instrument_id")},
		[2]string{"Amount", str(p, "amount")},
		[2]string{"Frequency", str(p, "frequency")},
		[2]string{"Start", str(p, "start_date")},
		[2]string{"Active", str(p, "active")},
		[2]string{"Units", str(p, "units")},
		[2]string{"Goal", str(p, "goal_id")},
	))
}

func printRecords(w io.Writer, title string, records []map[string]any) {
	t := cli.Table{
		Title:   title,
		Headers: []string{"Record", "Due", "Amount", "State", "Price", "Units"},
	}
	for _, r := range records {
		t.Rows = append(t.Rows, []string{
			str(r, "id"),
			str(r, "due_date"),
			str(r, "amount"),
			cli.RenderStatus(str(r, "state")),
			str(r, "price"),
			str(r, "units"),
		})
	}
	fmt.Fprint(w, cli.RenderTable(t))
}

func printStatuses(w io.Writer, statuses []map[string]any) {
	t := cli.Table{
		Title:   "Plan health",
		Headers: []string{"Plan", "Instrument", "Expected", "Paid", "Pending", "Failed", "Missing", "Status"},
	}
	for _, s := range statuses {
		p, h := sub(s, "plan"), sub(s, "health")
		t.Rows = append(t.Rows, []string{
			str(p, "id"),
			str(p, "instrument_id"),
			str(h, "expected_periods"),
			str(h, "paid_periods"),
			str(h, "pending_periods"),
			str(h, "failed_periods"),
			str(h, "missing_periods"),
			cli.RenderStatus(str(h, "status")),
		})
	}
	fmt.Fprint(w, cli.RenderTable(t))
}
