// internal/view/filter_test.go
package view

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/taskboard/internal/models"
)

func titled(id int64, title, description string) models.Task {
	return models.Task{ID: id, Title: title, Description: description, Column: models.ColumnBacklog}
}

func TestFilter_Search(t *testing.T) {
	tasks := []models.Task{
		titled(1, "Design homepage", "Include hero section"),
		titled(2, "Fix bug", "Login form crashes"),
		titled(3, "Write docs", "Describe the DESIGN decisions"),
	}

	tests := []struct {
		name string
		term string
		want []int64
	}{
		{name: "empty term matches all", term: "", want: []int64{1, 2, 3}},
		{name: "title match ignores case", term: "design", want: []int64{1, 3}},
		{name: "description match", term: "crashes", want: []int64{2}},
		{name: "upper case term", term: "FIX", want: []int64{2}},
		{name: "no match", term: "deploy", want: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Filter(tasks, tt.term, DefaultPageSize, 1)
			got := make([]int64, 0, len(page.Tasks))
			for _, task := range page.Tasks {
				got = append(got, task.ID)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want), page.Matched)
			assert.False(t, page.HasMore)
		})
	}
}

func TestFilter_DesignScenario(t *testing.T) {
	tasks := []models.Task{
		titled(1, "Design homepage", ""),
		titled(2, "Fix bug", ""),
	}
	page := Filter(tasks, "design", DefaultPageSize, 1)
	require.Len(t, page.Tasks, 1)
	assert.Equal(t, "Design homepage", page.Tasks[0].Title)
}

func TestFilter_Pagination(t *testing.T) {
	tasks := make([]models.Task, 0, 25)
	for i := 1; i <= 25; i++ {
		tasks = append(tasks, titled(int64(i), fmt.Sprintf("Task %d", i), ""))
	}

	tests := []struct {
		name      string
		pageSize  int
		pageCount int
		wantLen   int
		remaining int
	}{
		{name: "first page", pageSize: 10, pageCount: 1, wantLen: 10, remaining: 15},
		{name: "second page", pageSize: 10, pageCount: 2, wantLen: 20, remaining: 5},
		{name: "past the end", pageSize: 10, pageCount: 5, wantLen: 25, remaining: 0},
		{name: "defaults", pageSize: 0, pageCount: 0, wantLen: DefaultPageSize, remaining: 15},
		{name: "exact multiple", pageSize: 5, pageCount: 5, wantLen: 25, remaining: 0},
		{name: "huge page count", pageSize: 10, pageCount: math.MaxInt / 5, wantLen: 25, remaining: 0},
		{name: "huge page size and count", pageSize: math.MaxInt, pageCount: math.MaxInt, wantLen: 25, remaining: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Filter(tasks, "", tt.pageSize, tt.pageCount)
			require.Len(t, page.Tasks, tt.wantLen)
			assert.Equal(t, int64(1), page.Tasks[0].ID)
			assert.Equal(t, 25, page.Matched)
			assert.Equal(t, tt.remaining, page.Remaining)
			assert.Equal(t, tt.remaining > 0, page.HasMore)
		})
	}
}

func TestFilter_MorePagesKeepOrder(t *testing.T) {
	tasks := make([]models.Task, 0, 15)
	for i := 1; i <= 15; i++ {
		tasks = append(tasks, titled(int64(i), "card", ""))
	}
	first := Filter(tasks, "card", 10, 1)
	both := Filter(tasks, "card", 10, 2)
	assert.Equal(t, first.Tasks, both.Tasks[:10])
}

func TestFilter_DoesNotModifyInput(t *testing.T) {
	tasks := []models.Task{
		titled(1, "Fix bug", ""),
		titled(2, "Design homepage", ""),
	}
	before := append([]models.Task(nil), tasks...)

	page := Filter(tasks, "design", 10, 1)
	require.Len(t, page.Tasks, 1)
	page.Tasks = append(page.Tasks, titled(9, "extra", ""))

	assert.Equal(t, before, tasks)
}

func TestFilter_HugePageCountOnSmallColumn(t *testing.T) {
	tasks := []models.Task{titled(1, "Design homepage", ""), titled(2, "Fix bug", "")}

	page := Filter(tasks, "", 10, math.MaxInt/5)
	assert.Len(t, page.Tasks, 2)
	assert.False(t, page.HasMore)

	empty := Filter(nil, "", 10, math.MaxInt)
	assert.Empty(t, empty.Tasks)
	assert.Zero(t, empty.Remaining)
}
