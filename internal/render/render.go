// Package render formats explorer items for the terminal.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/fruitsalade/explorer/pkg/models"
)

const timeLayout = "2006-01-02 15:04"

var (
	rootStyle   = lipgloss.NewStyle().Bold(true)
	folderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	fileStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	faintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Width(10)
)

// Tree draws the forest under root. Children of collapsed folders are not
// drawn.
func Tree(root string, forest []*models.FolderItem) string {
	t := tree.Root(root).
		RootStyle(rootStyle).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(faintStyle)
	addChildren(t, forest)
	return t.String()
}

func addChildren(t *tree.Tree, items []*models.FolderItem) {
	for _, item := range items {
		if item.IsFolder() && item.IsExpanded && len(item.Children) > 0 {
			sub := tree.Root(Label(item)).
				Enumerator(tree.RoundedEnumerator).
				EnumeratorStyle(faintStyle)
			addChildren(sub, item.Children)
			t.Child(sub)
			continue
		}
		t.Child(Label(item))
	}
}

// Label is an item's name as shown in listings: folders end in a slash and
// show their icon.
func Label(item *models.FolderItem) string {
	if !item.IsFolder() {
		return fileStyle.Render(item.Name)
	}
	name := item.Name + "/"
	if item.Icon != "" {
		name += " " + faintStyle.Render("["+item.Icon+"]")
	}
	return folderStyle.Render(name)
}

// List draws items as a table.
func List(items []*models.FolderItem) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(faintStyle).
		Headers("NAME", "TYPE", "PATH", "UPDATED", "ID").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, item := range items {
		t.Row(Label(item), string(item.Type), item.Path, formatTime(item.UpdateDate), item.ID)
	}
	return t.String()
}

// Detail draws folder metadata.
func Detail(d *models.FolderDetail) string {
	comment := d.Comment
	if comment == "" {
		comment = faintStyle.Render("no comment")
	}
	rows := [][2]string{
		{"Name", d.Name},
		{"Path", d.Path},
		{"Icon", d.Icon},
		{"Comment", comment},
		{"Created", formatTime(d.CreateDate)},
		{"Updated", formatTime(d.UpdateDate)},
	}
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(r[0]), r[1])
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Breadcrumb renders a path as its segments.
func Breadcrumb(path string) string {
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	if len(parts) == 0 {
		return faintStyle.Render("/")
	}
	return faintStyle.Render(strings.Join(parts, " › "))
}

// Pager summarizes a flat listing page.
func Pager(page, pageSize, total int) string {
	if pageSize <= 0 {
		return faintStyle.Render(fmt.Sprintf("%d items", total))
	}
	pages := (total + pageSize - 1) / pageSize
	if pages == 0 {
		pages = 1
	}
	return faintStyle.Render(fmt.Sprintf("page %d of %d, %d items", page, pages, total))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
