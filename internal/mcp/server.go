package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ldi/corkboard/internal/board"
	"github.com/ldi/corkboard/internal/dnd"
	"github.com/ldi/corkboard/pkg/models"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server driving the given store.
func NewServer(store *board.Store, staging *board.Staging) *server.MCPServer {
	s := server.NewMCPServer("Corkboard", "0.1.0")
	reconciler := dnd.NewReconciler(store, nil)

	// Reads
	s.AddTool(mcp.NewTool("list_boards",
		mcp.WithDescription("List all boards with their columns and task counts."),
	), listBoardsHandler(store))

	s.AddTool(mcp.NewTool("get_view",
		mcp.WithDescription("Get the current board's tasks grouped by column, after search and filters are applied."),
	), getViewHandler(store))

	s.AddTool(mcp.NewTool("get_stats",
		mcp.WithDescription("Get summary counts for the current board."),
	), getStatsHandler(store))

	s.AddTool(mcp.NewTool("get_task",
		mcp.WithDescription("Get a single task by id."),
		mcp.WithString("task_id", mcp.Description("Task id"), mcp.Required()),
	), getTaskHandler(store))

	// Task Management
	s.AddTool(mcp.NewTool("create_task",
		mcp.WithDescription("Create a task at the end of a column."),
		mcp.WithString("title", mcp.Description("Task title (max 200 chars)"), mcp.Required()),
		mcp.WithString("column_id", mcp.Description("Column id (defaults to the first column)")),
		mcp.WithString("board_id", mcp.Description("Board id (defaults to the current board)")),
		mcp.WithString("description", mcp.Description("Task description")),
		mcp.WithString("priority", mcp.Description("Priority"), mcp.Enum("low", "medium", "high")),
		mcp.WithString("assignee", mcp.Description("Assignee")),
		mcp.WithString("due_date", mcp.Description("Due date (YYYY-MM-DD)")),
		mcp.WithArray("subtasks", mcp.Description("Subtask titles"), mcp.Items(map[string]any{"type": "string"})),
	), createTaskHandler(store))

	s.AddTool(mcp.NewTool("update_task",
		mcp.WithDescription("Update fields of an existing task. Omitted fields keep their value."),
		mcp.WithString("task_id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("priority", mcp.Description("New priority"), mcp.Enum("low", "medium", "high")),
		mcp.WithString("assignee", mcp.Description("New assignee")),
		mcp.WithString("due_date", mcp.Description("New due date (YYYY-MM-DD, empty to clear)")),
	), updateTaskHandler(store))

	s.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task."),
		mcp.WithString("task_id", mcp.Description("Task id"), mcp.Required()),
	), actionHandler(store, func(r mcp.CallToolRequest) board.Action {
		return board.DeleteTask{TaskID: mcp.ParseString(r, "task_id", "")}
	}))

	s.AddTool(mcp.NewTool("move_task",
		mcp.WithDescription("Move a task to a position in a column. The index is clamped to the column length."),
		mcp.WithString("task_id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithString("column_id", mcp.Description("Destination column id"), mcp.Required()),
		mcp.WithNumber("index", mcp.Description("Destination index (defaults to the end)")),
	), actionHandler(store, func(r mcp.CallToolRequest) board.Action {
		return board.MoveTask{
			TaskID:   mcp.ParseString(r, "task_id", ""),
			ColumnID: mcp.ParseString(r, "column_id", ""),
			Index:    mcp.ParseInt(r, "index", int(^uint(0)>>1)),
		}
	}))

	s.AddTool(mcp.NewTool("reorder_tasks",
		mcp.WithDescription("Move a task within a column of the current board from one index to another."),
		mcp.WithString("column_id", mcp.Description("Column id"), mcp.Required()),
		mcp.WithNumber("old_index", mcp.Description("Current index"), mcp.Required()),
		mcp.WithNumber("new_index", mcp.Description("Target index"), mcp.Required()),
	), actionHandler(store, func(r mcp.CallToolRequest) board.Action {
		return board.ReorderTasks{
			ColumnID: mcp.ParseString(r, "column_id", ""),
			OldIndex: mcp.ParseInt(r, "old_index", -1),
			NewIndex: mcp.ParseInt(r, "new_index", -1),
		}
	}))

	s.AddTool(mcp.NewTool("drag_end",
		mcp.WithDescription("Report a finished drag of a task. Produces at most one move or reorder."),
		mcp.WithString("active_id", mcp.Description("Id of the dragged task"), mcp.Required()),
		mcp.WithString("active_container_id", mcp.Description("Column the task was picked up from"), mcp.Required()),
		mcp.WithString("over_id", mcp.Description("Task or column id the task was dropped on (empty when dropped outside)")),
		mcp.WithString("over_container_id", mcp.Description("Column owning the drop target")),
	), dragEndHandler(reconciler))

	// Subtasks and counters
	s.AddTool(mcp.NewTool("add_subtask",
		mcp.WithDescription("Append a subtask to a task."),
		mcp.WithString("task_id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithString("title", mcp.Description("Subtask title"), mcp.Required()),
	), actionHandler(store, func(r mcp.CallToolRequest) board.Action {
		return board.AddSubtask{TaskID: mcp.ParseString(r, "task_id", ""), Title: mcp.ParseString(r, "title", "")}
	}))

	s.AddTool(mcp.NewTool("toggle_subtask",
		mcp.WithDescription("Flip the completed flag of a subtask."),
		mcp.WithString("task_id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithString("subtask_id", mcp.Description("Subtask id"), mcp.Required()),
	), actionHandler(store, func(r mcp.CallToolRequest) board.Action {
		return board.ToggleSubtask{TaskID: mcp.ParseString(r, "task_id", ""), SubtaskID: mcp.ParseString(r, "subtask_id", "")}
	}))

	s.AddTool(mcp.NewTool("delete_subtask",
		mcp.WithDescription("Remove a subtask."),
		mcp.WithString("task_id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithString("subtask_id", mcp.Description("Subtask id"), mcp.Required()),
	), actionHandler(store, func(r mcp.CallToolRequest) board.Action {
		return board.DeleteSubtask{TaskID: mcp.ParseString(r, "task_id", ""), SubtaskID: mcp.ParseString(r, "subtask_id", "")}
	}))

	s.AddTool(mcp.NewTool("add_comment",
		mcp.WithDescription("Record a comment on a task."),
		mcp.WithString("task_id", mcp.Description("Task id"), mcp.Required()),
	), actionHandler(store, func(r mcp.CallToolRequest) board.Action {
		return board.AddComment{TaskID: mcp.ParseString(r, "task_id", "")}
	}))

	s.AddTool(mcp.NewTool("attach_file",
		mcp.WithDescription("Record a file attachment on a task."),
		mcp.WithString("task_id", mcp.Description("Task id"), mcp.Required()),
	), actionHandler(store, func(r mcp.CallToolRequest) board.Action {
		return board.AttachFile{TaskID: mcp.ParseString(r, "task_id", "")}
	}))

	// Board Management
	s.AddTool(mcp.NewTool("create_board",
		mcp.WithDescription("Create a board with the default columns."),
		mcp.WithString("name", mcp.Description("Board name"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Board description")),
	), actionHandler(store, func(r mcp.CallToolRequest) board.Action {
		return board.AddBoard{Name: mcp.ParseString(r, "name", ""), Description: mcp.ParseString(r, "description", "")}
	}))

	s.AddTool(mcp.NewTool("delete_board",
		mcp.WithDescription("Delete a board and its tasks. The last board cannot be deleted."),
		mcp.WithString("board_id", mcp.Description("Board id"), mcp.Required()),
	), actionHandler(store, func(r mcp.CallToolRequest) board.Action {
		return board.DeleteBoard{BoardID: mcp.ParseString(r, "board_id", "")}
	}))

	s.AddTool(mcp.NewTool("switch_board",
		mcp.WithDescription("Make a board the current one."),
		mcp.WithString("board_id", mcp.Description("Board id"), mcp.Required()),
	), actionHandler(store, func(r mcp.CallToolRequest) board.Action {
		return board.SwitchBoard{BoardID: mcp.ParseString(r, "board_id", "")}
	}))

	s.AddTool(mcp.NewTool("add_column",
		mcp.WithDescription("Append a column to a board."),
		mcp.WithString("name", mcp.Description("Column name (unique within the board)"), mcp.Required()),
		mcp.WithString("board_id", mcp.Description("Board id (defaults to the current board)")),
	), actionHandler(store, func(r mcp.CallToolRequest) board.Action {
		return board.AddColumn{BoardID: boardOrCurrent(store, r), Name: mcp.ParseString(r, "name", "")}
	}))

	s.AddTool(mcp.NewTool("rename_column",
		mcp.WithDescription("Rename a column. Tasks in it take the new name as their status."),
		mcp.WithString("column_id", mcp.Description("Column id"), mcp.Required()),
		mcp.WithString("name", mcp.Description("New name"), mcp.Required()),
		mcp.WithString("board_id", mcp.Description("Board id (defaults to the current board)")),
	), actionHandler(store, func(r mcp.CallToolRequest) board.Action {
		return board.RenameColumn{
			BoardID:  boardOrCurrent(store, r),
			ColumnID: mcp.ParseString(r, "column_id", ""),
			Name:     mcp.ParseString(r, "name", ""),
		}
	}))

	s.AddTool(mcp.NewTool("delete_column",
		mcp.WithDescription("Delete an empty column."),
		mcp.WithString("column_id", mcp.Description("Column id"), mcp.Required()),
		mcp.WithString("board_id", mcp.Description("Board id (defaults to the current board)")),
	), actionHandler(store, func(r mcp.CallToolRequest) board.Action {
		return board.DeleteColumn{BoardID: boardOrCurrent(store, r), ColumnID: mcp.ParseString(r, "column_id", "")}
	}))

	// Filters
	s.AddTool(mcp.NewTool("set_filters",
		mcp.WithDescription("Set search and filter criteria for get_view. Omitted criteria are left unchanged; pass clear=true to reset all first."),
		mcp.WithString("query", mcp.Description("Free-text search over title, description and assignee")),
		mcp.WithString("priority", mcp.Description("Priority"), mcp.Enum("", "low", "medium", "high")),
		mcp.WithString("assignee", mcp.Description("Assignee")),
		mcp.WithString("due_date", mcp.Description("Due date bucket"), mcp.Enum("", "today", "tomorrow", "week", "overdue")),
		mcp.WithString("status", mcp.Description("Column name to narrow the view to")),
		mcp.WithBoolean("clear", mcp.Description("Clear all criteria before applying the others")),
	), setFiltersHandler(store))

	// Generic and staged actions
	s.AddTool(mcp.NewTool("dispatch_action",
		mcp.WithDescription(fmt.Sprintf("Apply a JSON action envelope {\"kind\": ..., ...}. Kinds: %v", board.Kinds())),
		mcp.WithString("action", mcp.Description("JSON action envelope"), mcp.Required()),
	), dispatchActionHandler(store))

	s.AddTool(mcp.NewTool("stage_action",
		mcp.WithDescription("Propose a JSON action envelope. Changes are staged and must be committed to take effect."),
		mcp.WithString("action", mcp.Description("JSON action envelope"), mcp.Required()),
		mcp.WithString("session_id", mcp.Description("Session ID for staging changes (defaults to 'default').")),
	), stageActionHandler(staging))

	s.AddTool(mcp.NewTool("list_staged_changes",
		mcp.WithDescription("List all staged actions for a session. Use this to review a proposed plan before committing."),
		mcp.WithString("session_id", mcp.Description("Session ID (defaults to 'default').")),
	), listStagedChangesHandler(staging))

	s.AddTool(mcp.NewTool("commit_staged_changes",
		mcp.WithDescription("Apply all staged actions for a session in order."),
		mcp.WithString("session_id", mcp.Description("Session ID (defaults to 'default').")),
	), commitStagedChangesHandler(store, staging))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func boardOrCurrent(store *board.Store, r mcp.CallToolRequest) string {
	return mcp.ParseString(r, "board_id", store.CurrentBoardID())
}

func dispatch(ctx context.Context, store *board.Store, a board.Action) (*mcp.CallToolResult, error) {
	res, err := store.Dispatch(ctx, a)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !res.Applied {
		return mcp.NewToolResultError(fmt.Sprintf("%s had no effect: unknown id or refused change", res.Kind)), nil
	}
	return jsonResult(res)
}

func actionHandler(store *board.Store, build func(mcp.CallToolRequest) board.Action) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return dispatch(ctx, store, build(request))
	}
}

func listBoardsHandler(store *board.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		type columnInfo struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Count int    `json:"count"`
		}
		type boardInfo struct {
			ID          string       `json:"id"`
			Name        string       `json:"name"`
			Description string       `json:"description"`
			Current     bool         `json:"current"`
			Columns     []columnInfo `json:"columns"`
		}

		current := store.CurrentBoardID()
		var out []boardInfo
		for _, b := range store.Boards() {
			info := boardInfo{ID: b.ID, Name: b.Name, Description: b.Description, Current: b.ID == current}
			for _, c := range b.Columns {
				info.Columns = append(info.Columns, columnInfo{ID: c.ID, Name: c.Name, Count: len(c.Tasks)})
			}
			out = append(out, info)
		}
		return jsonResult(map[string]any{"boards": out})
	}
}

func getViewHandler(store *board.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(store.View())
	}
}

func getStatsHandler(store *board.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(store.Stats())
	}
}

func getTaskHandler(store *board.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "task_id", "")
		t, ok := store.Task(id)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("Task with id '%s' not found", id)), nil
		}
		return jsonResult(t)
	}
}

func createTaskHandler(store *board.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		boardID := boardOrCurrent(store, request)
		columnID := mcp.ParseString(request, "column_id", "")
		if columnID == "" {
			if b, ok := store.Board(boardID); ok && len(b.Columns) > 0 {
				columnID = b.Columns[0].ID
			}
		}

		var subtasks []string
		args, _ := request.Params.Arguments.(map[string]any)
		if raw, ok := args["subtasks"].([]any); ok {
			for _, v := range raw {
				if s, ok := v.(string); ok {
					subtasks = append(subtasks, s)
				}
			}
		}

		return dispatch(ctx, store, board.CreateTask{
			BoardID:     boardID,
			ColumnID:    columnID,
			Title:       mcp.ParseString(request, "title", ""),
			Description: mcp.ParseString(request, "description", ""),
			Priority:    models.Priority(mcp.ParseString(request, "priority", string(models.PriorityMedium))),
			Assignee:    mcp.ParseString(request, "assignee", ""),
			DueDate:     mcp.ParseString(request, "due_date", ""),
			Subtasks:    subtasks,
		})
	}
}

func updateTaskHandler(store *board.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "task_id", "")
		t, ok := store.Task(id)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("Task with id '%s' not found", id)), nil
		}

		args, _ := request.Params.Arguments.(map[string]any)
		if title, ok := args["title"].(string); ok {
			t.Title = title
		}
		if description, ok := args["description"].(string); ok {
			t.Description = description
		}
		if priority, ok := args["priority"].(string); ok {
			t.Priority = models.Priority(priority)
		}
		if assignee, ok := args["assignee"].(string); ok {
			t.Assignee = assignee
		}
		if due, ok := args["due_date"].(string); ok {
			t.DueDate = due
		}

		res, err := store.Dispatch(ctx, board.UpdateTask{Task: *t})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !res.Applied {
			return mcp.NewToolResultText("Task unchanged"), nil
		}
		return mcp.NewToolResultText("Task updated successfully"), nil
	}
}

func dragEndHandler(reconciler *dnd.Reconciler) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res := reconciler.Apply(ctx, dnd.DragEnd{
			ActiveID:          mcp.ParseString(request, "active_id", ""),
			ActiveContainerID: mcp.ParseString(request, "active_container_id", ""),
			OverID:            mcp.ParseString(request, "over_id", ""),
			OverContainerID:   mcp.ParseString(request, "over_container_id", ""),
		})
		return jsonResult(res)
	}
}

func setFiltersHandler(store *board.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var actions []board.Action
		if mcp.ParseBoolean(request, "clear", false) {
			actions = append(actions, board.ClearFilters{})
		}
		args, _ := request.Params.Arguments.(map[string]any)
		if q, ok := args["query"].(string); ok {
			actions = append(actions, board.SetSearchQuery{Query: q})
		}
		if p, ok := args["priority"].(string); ok {
			actions = append(actions, board.SetPriorityFilter{Priority: models.Priority(p)})
		}
		if a, ok := args["assignee"].(string); ok {
			actions = append(actions, board.SetAssigneeFilter{Assignee: a})
		}
		if d, ok := args["due_date"].(string); ok {
			actions = append(actions, board.SetDueDateFilter{DueDate: models.DueBucket(d)})
		}
		if st, ok := args["status"].(string); ok {
			actions = append(actions, board.SetStatusFilter{Status: st})
		}

		// Validate everything before touching the store.
		for _, a := range actions {
			if err := a.Validate(); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}
		for _, a := range actions {
			if _, err := store.Dispatch(ctx, a); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}
		return jsonResult(store.Filter())
	}
}

func dispatchActionHandler(store *board.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		a, err := board.DecodeAction([]byte(mcp.ParseString(request, "action", "")))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, err := store.Dispatch(ctx, a)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(res)
	}
}

func stageActionHandler(staging *board.Staging) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID := mcp.ParseString(request, "session_id", "default")
		a, err := board.DecodeAction([]byte(mcp.ParseString(request, "action", "")))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := staging.Add(sessionID, a); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Action '%s' staged for session '%s'. Propose another or call 'commit_staged_changes' to apply.", a.Kind(), sessionID)), nil
	}
}

func listStagedChangesHandler(staging *board.Staging) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID := mcp.ParseString(request, "session_id", "default")
		type staged struct {
			Kind   string       `json:"kind"`
			Action board.Action `json:"action"`
		}
		items := staging.Peek(sessionID)
		out := make([]staged, 0, len(items))
		for _, a := range items {
			out = append(out, staged{Kind: a.Kind(), Action: a})
		}
		return jsonResult(map[string]any{"session_id": sessionID, "actions": out})
	}
}

func commitStagedChangesHandler(store *board.Store, staging *board.Staging) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID := mcp.ParseString(request, "session_id", "default")
		if len(staging.Peek(sessionID)) == 0 {
			return mcp.NewToolResultText("No staged changes to commit."), nil
		}
		results, err := store.CommitStaged(ctx, staging, sessionID)
		if err != nil {
			if errors.Is(err, board.ErrInvalidAction) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return nil, err
		}
		return jsonResult(map[string]any{"results": results})
	}
}
