package dom

import (
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/taskstate/tasksync/internal/domain"
)

// Indicator is one task-status element.
type Indicator struct {
	sel *goquery.Selection
}

func (i *Indicator) TaskID() (domain.TaskID, bool) {
	pk, ok := i.sel.Attr(PKAttr)
	if !ok || pk == "" {
		return "", false
	}
	return domain.TaskID(pk), true
}

func (i *Indicator) Status() domain.TaskStatus {
	return domain.TaskStatus(i.sel.AttrOr(StatusAttr, ""))
}

func (i *Indicator) SetStatus(status domain.TaskStatus) {
	i.sel.Find(StatusTextSelector).First().SetText(status.String())
	i.sel.SetAttr(StatusAttr, status.String())
}

func (i *Indicator) SetActive(active bool) {
	if active {
		i.sel.AddClass(ActiveClass)
		return
	}
	i.sel.RemoveClass(ActiveClass)
}

func (i *Indicator) IsActive() bool {
	return i.sel.HasClass(ActiveClass)
}

func (i *Indicator) SetProgress(percent int) {
	progress := i.sel.Find(ProgressSelector).First()
	if progress.Length() == 0 {
		return
	}
	progress.SetText(strconv.Itoa(percent) + "%")
}

// StatusText returns the visible label.
func (i *Indicator) StatusText() string {
	return i.sel.Find(StatusTextSelector).First().Text()
}

// ProgressText returns the progress display, empty when there is none.
func (i *Indicator) ProgressText() string {
	return i.sel.Find(ProgressSelector).First().Text()
}
