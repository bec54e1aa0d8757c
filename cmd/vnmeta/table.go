package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/John-Robertt/vnmeta/internal/domain"
	"github.com/John-Robertt/vnmeta/internal/match"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    80,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// renderReport 是终端下的 FetchReport 摘要：字段表 + 来源表。
func renderReport(rep domain.FetchReport) string {
	m := rep.Metadata
	fields := [][]string{
		{"name", m.Name},
		{"introduction", truncate(deref(m.Introduction), 200)},
		{"released", deref(m.Released)},
		{"vndb_id", deref(m.VNDBID)},
		{"dlsite_code", deref(m.DLsiteCode)},
		{"alias", strings.Join(m.Alias, " / ")},
		{"tag", strings.Join(m.Tag, ", ")},
		{"banner", deref(m.Banner)},
		{"screenshots", strconv.Itoa(len(m.Screenshots))},
		{"website", m.Website},
		{"companies", companyNames(m.Companies)},
	}

	sources := make([][]string, 0, len(rep.Sources))
	for _, s := range rep.Sources {
		sources = append(sources, []string{
			s.Provider,
			s.Status,
			fmt.Sprintf("%dms", s.DurationMS),
			truncate(s.Error, 80),
		})
	}

	var b strings.Builder
	b.WriteString(renderTable([]string{"Field", "Value"}, fields, nil))
	b.WriteString("\n")
	b.WriteString(renderTable([]string{"Source", "Status", "Duration", "Error"}, sources,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
	b.WriteString("\n")
	return b.String()
}

func renderRanked(ranked []match.Ranked) string {
	rows := make([][]string, 0, len(ranked))
	for _, r := range ranked {
		target := ""
		if r.Candidate.IsTarget {
			target = "yes"
		}
		rows = append(rows, []string{
			strconv.Itoa(r.Score),
			r.Candidate.ID,
			r.Candidate.Title,
			r.Candidate.AltTitle,
			target,
		})
	}
	return renderTable([]string{"Score", "ID", "Title", "AltTitle", "Target"}, rows,
		[]columnAlignment{alignRight}) + "\n"
}

func companyNames(cs []domain.Company) string {
	names := make([]string, 0, len(cs))
	for _, c := range cs {
		n := c.Name
		if c.Original != "" && c.Original != c.Name {
			n += " (" + c.Original + ")"
		}
		names = append(names, n)
	}
	return strings.Join(names, ", ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
