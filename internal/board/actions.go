package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/ldi/corkboard/pkg/models"
)

// ErrInvalidAction wraps every validation failure reported by Dispatch.
var ErrInvalidAction = errors.New("invalid action")

// Action is one typed transition request. Validate checks the payload
// shape; whether the referenced entities exist is the store's business.
type Action interface {
	Kind() string
	Validate() error
}

// Result reports what Dispatch did. Applied is false for no-ops and
// refusals. ID is set by actions that create something.
type Result struct {
	Kind    string `json:"kind"`
	Applied bool   `json:"applied"`
	ID      string `json:"id,omitempty"`
}

type CreateTask struct {
	BoardID     string          `json:"board_id"`
	ColumnID    string          `json:"column_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    models.Priority `json:"priority"`
	Assignee    string          `json:"assignee"`
	DueDate     string          `json:"due_date"`
	Subtasks    []string        `json:"subtasks"`
}

type UpdateTask struct {
	Task models.Task `json:"task"`
}

type DeleteTask struct {
	TaskID string `json:"task_id"`
}

type MoveTask struct {
	TaskID   string `json:"task_id"`
	ColumnID string `json:"column_id"`
	Index    int    `json:"index"`
}

type ReorderTasks struct {
	ColumnID string `json:"column_id"`
	OldIndex int    `json:"old_index"`
	NewIndex int    `json:"new_index"`
}

type AddSubtask struct {
	TaskID string `json:"task_id"`
	Title  string `json:"title"`
}

type ToggleSubtask struct {
	TaskID    string `json:"task_id"`
	SubtaskID string `json:"subtask_id"`
}

type DeleteSubtask struct {
	TaskID    string `json:"task_id"`
	SubtaskID string `json:"subtask_id"`
}

type AddComment struct {
	TaskID string `json:"task_id"`
}

type AttachFile struct {
	TaskID string `json:"task_id"`
}

type AddBoard struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type DeleteBoard struct {
	BoardID string `json:"board_id"`
}

type SwitchBoard struct {
	BoardID string `json:"board_id"`
}

type UpdateBoard struct {
	BoardID     string `json:"board_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type AddColumn struct {
	BoardID string `json:"board_id"`
	Name    string `json:"name"`
}

type RenameColumn struct {
	BoardID  string `json:"board_id"`
	ColumnID string `json:"column_id"`
	Name     string `json:"name"`
}

type DeleteColumn struct {
	BoardID  string `json:"board_id"`
	ColumnID string `json:"column_id"`
}

type SetSearchQuery struct {
	Query string `json:"query"`
}

type SetPriorityFilter struct {
	Priority models.Priority `json:"priority"`
}

type SetAssigneeFilter struct {
	Assignee string `json:"assignee"`
}

type SetDueDateFilter struct {
	DueDate models.DueBucket `json:"due_date"`
}

type SetStatusFilter struct {
	Status string `json:"status"`
}

type ClearFilters struct{}

func (CreateTask) Kind() string        { return "create_task" }
func (UpdateTask) Kind() string        { return "update_task" }
func (DeleteTask) Kind() string        { return "delete_task" }
func (MoveTask) Kind() string          { return "move_task" }
func (ReorderTasks) Kind() string      { return "reorder_tasks" }
func (AddSubtask) Kind() string        { return "add_subtask" }
func (ToggleSubtask) Kind() string     { return "toggle_subtask" }
func (DeleteSubtask) Kind() string     { return "delete_subtask" }
func (AddComment) Kind() string        { return "add_comment" }
func (AttachFile) Kind() string        { return "attach_file" }
func (AddBoard) Kind() string          { return "add_board" }
func (DeleteBoard) Kind() string       { return "delete_board" }
func (SwitchBoard) Kind() string       { return "switch_board" }
func (UpdateBoard) Kind() string       { return "update_board" }
func (AddColumn) Kind() string         { return "add_column" }
func (RenameColumn) Kind() string      { return "rename_column" }
func (DeleteColumn) Kind() string      { return "delete_column" }
func (SetSearchQuery) Kind() string    { return "set_search_query" }
func (SetPriorityFilter) Kind() string { return "set_priority_filter" }
func (SetAssigneeFilter) Kind() string { return "set_assignee_filter" }
func (SetDueDateFilter) Kind() string  { return "set_due_date_filter" }
func (SetStatusFilter) Kind() string   { return "set_status_filter" }
func (ClearFilters) Kind() string      { return "clear_filters" }

func required(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func (a CreateTask) Validate() error {
	if err := errors.Join(required("board_id", a.BoardID), required("column_id", a.ColumnID)); err != nil {
		return err
	}
	if err := models.ValidateTitle(a.Title); err != nil {
		return err
	}
	if a.Priority != "" {
		if err := models.ValidatePriority(a.Priority); err != nil {
			return err
		}
	}
	return models.ValidateDueDate(a.DueDate)
}

func (a UpdateTask) Validate() error {
	t := a.Task
	if err := required("task.id", t.ID); err != nil {
		return err
	}
	if err := models.ValidateTitle(t.Title); err != nil {
		return err
	}
	if err := models.ValidatePriority(t.Priority); err != nil {
		return err
	}
	if err := models.ValidateDueDate(t.DueDate); err != nil {
		return err
	}
	return models.ValidateCounters(t.CommentCount, t.FileCount)
}

func (a DeleteTask) Validate() error { return required("task_id", a.TaskID) }

func (a MoveTask) Validate() error {
	if err := errors.Join(required("task_id", a.TaskID), required("column_id", a.ColumnID)); err != nil {
		return err
	}
	if a.Index < 0 {
		return fmt.Errorf("index cannot be negative")
	}
	return nil
}

func (a ReorderTasks) Validate() error {
	if err := required("column_id", a.ColumnID); err != nil {
		return err
	}
	if a.OldIndex < 0 || a.NewIndex < 0 {
		return fmt.Errorf("indices cannot be negative")
	}
	return nil
}

func (a AddSubtask) Validate() error {
	if err := required("task_id", a.TaskID); err != nil {
		return err
	}
	return models.ValidateTitle(a.Title)
}

func (a ToggleSubtask) Validate() error {
	return errors.Join(required("task_id", a.TaskID), required("subtask_id", a.SubtaskID))
}

func (a DeleteSubtask) Validate() error {
	return errors.Join(required("task_id", a.TaskID), required("subtask_id", a.SubtaskID))
}

func (a AddComment) Validate() error { return required("task_id", a.TaskID) }
func (a AttachFile) Validate() error { return required("task_id", a.TaskID) }

func (a AddBoard) Validate() error    { return models.ValidateBoardName(a.Name) }
func (a DeleteBoard) Validate() error { return required("board_id", a.BoardID) }
func (a SwitchBoard) Validate() error { return required("board_id", a.BoardID) }

func (a UpdateBoard) Validate() error {
	if err := required("board_id", a.BoardID); err != nil {
		return err
	}
	return models.ValidateBoardName(a.Name)
}

func (a AddColumn) Validate() error {
	if err := required("board_id", a.BoardID); err != nil {
		return err
	}
	return models.ValidateColumnName(a.Name)
}

func (a RenameColumn) Validate() error {
	if err := errors.Join(required("board_id", a.BoardID), required("column_id", a.ColumnID)); err != nil {
		return err
	}
	return models.ValidateColumnName(a.Name)
}

func (a DeleteColumn) Validate() error {
	return errors.Join(required("board_id", a.BoardID), required("column_id", a.ColumnID))
}

func (SetSearchQuery) Validate() error      { return nil }
func (SetAssigneeFilter) Validate() error   { return nil }
func (SetStatusFilter) Validate() error     { return nil }
func (ClearFilters) Validate() error        { return nil }
func (a SetPriorityFilter) Validate() error { return models.ValidateFilterPriority(a.Priority) }
func (a SetDueDateFilter) Validate() error  { return models.ValidateDueBucket(a.DueDate) }

// Dispatch validates an action and applies it. The error is non-nil only
// for malformed payloads; unknown ids and refused transitions come back as
// a Result with Applied false.
func (s *Store) Dispatch(ctx context.Context, a Action) (Result, error) {
	if a == nil {
		return Result{}, fmt.Errorf("%w: nil action", ErrInvalidAction)
	}
	res := Result{Kind: a.Kind()}
	if err := a.Validate(); err != nil {
		return res, fmt.Errorf("%w: %s: %v", ErrInvalidAction, a.Kind(), err)
	}

	switch a := a.(type) {
	case CreateTask:
		res.ID, res.Applied = s.CreateTask(ctx, a.BoardID, a.ColumnID, TaskDraft{
			Title:       a.Title,
			Description: a.Description,
			Priority:    a.Priority,
			Assignee:    a.Assignee,
			DueDate:     a.DueDate,
			Subtasks:    a.Subtasks,
		})
	case UpdateTask:
		res.Applied = s.UpdateTask(ctx, a.Task)
	case DeleteTask:
		res.Applied = s.DeleteTask(ctx, a.TaskID)
	case MoveTask:
		res.Applied = s.MoveTask(ctx, a.TaskID, a.ColumnID, a.Index)
	case ReorderTasks:
		res.Applied = s.ReorderInColumn(ctx, a.ColumnID, a.OldIndex, a.NewIndex)
	case AddSubtask:
		res.ID, res.Applied = s.AddSubtask(ctx, a.TaskID, a.Title)
	case ToggleSubtask:
		res.Applied = s.ToggleSubtask(ctx, a.TaskID, a.SubtaskID)
	case DeleteSubtask:
		res.Applied = s.DeleteSubtask(ctx, a.TaskID, a.SubtaskID)
	case AddComment:
		res.Applied = s.AddComment(ctx, a.TaskID)
	case AttachFile:
		res.Applied = s.AttachFile(ctx, a.TaskID)
	case AddBoard:
		res.ID, res.Applied = s.AddBoard(ctx, a.Name, a.Description)
	case DeleteBoard:
		res.Applied = s.DeleteBoard(ctx, a.BoardID)
	case SwitchBoard:
		res.Applied = s.SwitchBoard(ctx, a.BoardID)
	case UpdateBoard:
		res.Applied = s.UpdateBoard(ctx, a.BoardID, a.Name, a.Description)
	case AddColumn:
		res.ID, res.Applied = s.AddColumn(ctx, a.BoardID, a.Name)
	case RenameColumn:
		res.Applied = s.RenameColumn(ctx, a.BoardID, a.ColumnID, a.Name)
	case DeleteColumn:
		res.Applied = s.DeleteColumn(ctx, a.BoardID, a.ColumnID)
	case SetSearchQuery:
		res.Applied = s.SetSearchQuery(a.Query)
	case SetPriorityFilter:
		res.Applied = s.SetPriorityFilter(a.Priority)
	case SetAssigneeFilter:
		res.Applied = s.SetAssigneeFilter(a.Assignee)
	case SetDueDateFilter:
		res.Applied = s.SetDueDateFilter(a.DueDate)
	case SetStatusFilter:
		res.Applied = s.SetStatusFilter(a.Status)
	case ClearFilters:
		res.Applied = s.ClearFilters()
	default:
		return res, fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, a.Kind())
	}
	return res, nil
}

var decoders = map[string]func([]byte) (Action, error){
	"create_task":         decodeInto[CreateTask],
	"update_task":         decodeInto[UpdateTask],
	"delete_task":         decodeInto[DeleteTask],
	"move_task":           decodeInto[MoveTask],
	"reorder_tasks":       decodeInto[ReorderTasks],
	"add_subtask":         decodeInto[AddSubtask],
	"toggle_subtask":      decodeInto[ToggleSubtask],
	"delete_subtask":      decodeInto[DeleteSubtask],
	"add_comment":         decodeInto[AddComment],
	"attach_file":         decodeInto[AttachFile],
	"add_board":           decodeInto[AddBoard],
	"delete_board":        decodeInto[DeleteBoard],
	"switch_board":        decodeInto[SwitchBoard],
	"update_board":        decodeInto[UpdateBoard],
	"add_column":          decodeInto[AddColumn],
	"rename_column":       decodeInto[RenameColumn],
	"delete_column":       decodeInto[DeleteColumn],
	"set_search_query":    decodeInto[SetSearchQuery],
	"set_priority_filter": decodeInto[SetPriorityFilter],
	"set_assignee_filter": decodeInto[SetAssigneeFilter],
	"set_due_date_filter": decodeInto[SetDueDateFilter],
	"set_status_filter":   decodeInto[SetStatusFilter],
	"clear_filters":       decodeInto[ClearFilters],
}

func decodeInto[A Action](data []byte) (Action, error) {
	var a A
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return a, nil
}

// DecodeAction parses a JSON envelope of the form {"kind": "...", ...}
// where the remaining fields are the payload of that kind.
func DecodeAction(data []byte) (Action, error) {
	var base struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal action: %v", ErrInvalidAction, err)
	}
	decode, ok := decoders[base.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, base.Kind)
	}
	a, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAction, base.Kind, err)
	}
	return a, nil
}

// Kinds lists every action kind DecodeAction understands.
func Kinds() []string {
	return slices.Sorted(maps.Keys(decoders))
}
