package grpcapi

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/gurkanbulca/taskboard/internal/models"
)

// Field names shared by both ends of the wire.
const (
	fieldID          = "id"
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldColumn      = "column"
	fieldCreatedAt   = "createdAt"
	fieldUpdatedAt   = "updatedAt"
	fieldPatch       = "patch"
	fieldTasks       = "tasks"
)

func taskToPB(t models.Task) *structpb.Struct {
	fields := map[string]*structpb.Value{
		fieldID:          structpb.NewNumberValue(float64(t.ID)),
		fieldTitle:       structpb.NewStringValue(t.Title),
		fieldDescription: structpb.NewStringValue(t.Description),
		fieldColumn:      structpb.NewStringValue(string(t.Column)),
	}
	if t.CreatedAt != nil {
		fields[fieldCreatedAt] = structpb.NewStringValue(t.CreatedAt.UTC().Format(time.RFC3339Nano))
	}
	if t.UpdatedAt != nil {
		fields[fieldUpdatedAt] = structpb.NewStringValue(t.UpdatedAt.UTC().Format(time.RFC3339Nano))
	}
	return &structpb.Struct{Fields: fields}
}

func taskFromPB(x *structpb.Struct) (models.Task, error) {
	f := x.GetFields()
	t := models.Task{
		ID:          int64(f[fieldID].GetNumberValue()),
		Title:       f[fieldTitle].GetStringValue(),
		Description: f[fieldDescription].GetStringValue(),
		Column:      models.Column(f[fieldColumn].GetStringValue()),
	}
	var err error
	if t.CreatedAt, err = timeFromPB(f[fieldCreatedAt]); err != nil {
		return models.Task{}, fmt.Errorf("createdAt: %w", err)
	}
	if t.UpdatedAt, err = timeFromPB(f[fieldUpdatedAt]); err != nil {
		return models.Task{}, fmt.Errorf("updatedAt: %w", err)
	}
	return t, nil
}

func timeFromPB(v *structpb.Value) (*time.Time, error) {
	s := v.GetStringValue()
	if s == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

func tasksToPB(tasks []models.Task) *structpb.Struct {
	values := make([]*structpb.Value, 0, len(tasks))
	for _, t := range tasks {
		values = append(values, structpb.NewStructValue(taskToPB(t)))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldTasks: structpb.NewListValue(&structpb.ListValue{Values: values}),
	}}
}

func tasksFromPB(x *structpb.Struct) ([]models.Task, error) {
	values := x.GetFields()[fieldTasks].GetListValue().GetValues()
	out := make([]models.Task, 0, len(values))
	for i, v := range values {
		t, err := taskFromPB(v.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func filterToPB(f models.ListFilter) *structpb.Struct {
	fields := map[string]*structpb.Value{}
	if f.Column != nil {
		fields[fieldColumn] = structpb.NewStringValue(string(*f.Column))
	}
	return &structpb.Struct{Fields: fields}
}

func filterFromPB(x *structpb.Struct) models.ListFilter {
	v, ok := x.GetFields()[fieldColumn]
	if !ok {
		return models.ListFilter{}
	}
	return models.ForColumn(models.Column(v.GetStringValue()))
}

func draftToPB(d models.Draft) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldTitle:       structpb.NewStringValue(d.Title),
		fieldDescription: structpb.NewStringValue(d.Description),
		fieldColumn:      structpb.NewStringValue(string(d.Column)),
	}}
}

func draftFromPB(x *structpb.Struct) models.Draft {
	f := x.GetFields()
	return models.Draft{
		Title:       f[fieldTitle].GetStringValue(),
		Description: f[fieldDescription].GetStringValue(),
		Column:      models.Column(f[fieldColumn].GetStringValue()),
	}
}

// updateToPB carries only the fields the patch sets; key presence is the mask.
func updateToPB(id int64, p models.Patch) *structpb.Struct {
	patch := map[string]*structpb.Value{}
	if p.Title != nil {
		patch[fieldTitle] = structpb.NewStringValue(*p.Title)
	}
	if p.Description != nil {
		patch[fieldDescription] = structpb.NewStringValue(*p.Description)
	}
	if p.Column != nil {
		patch[fieldColumn] = structpb.NewStringValue(string(*p.Column))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldID:    structpb.NewNumberValue(float64(id)),
		fieldPatch: structpb.NewStructValue(&structpb.Struct{Fields: patch}),
	}}
}

func updateFromPB(x *structpb.Struct) (int64, models.Patch) {
	f := x.GetFields()
	id := int64(f[fieldID].GetNumberValue())

	var p models.Patch
	patch := f[fieldPatch].GetStructValue().GetFields()
	if v, ok := patch[fieldTitle]; ok {
		s := v.GetStringValue()
		p.Title = &s
	}
	if v, ok := patch[fieldDescription]; ok {
		s := v.GetStringValue()
		p.Description = &s
	}
	if v, ok := patch[fieldColumn]; ok {
		c := models.Column(v.GetStringValue())
		p.Column = &c
	}
	return id, p
}
