// Package tables implements the PostgreSQL table capability server:
// CRUD tools over pgx, a cached describe_table, a tables resource, and a
// SQL explainer prompt.
//
// Table and column names are interpolated into SQL, so they are checked
// against a strict identifier pattern; all values travel as placeholders.
package tables

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/prajeetragavr/mcpagent/pkg/worker"
)

// TablesURI is the resource listing the public tables.
const TablesURI = "postgres://tables"

// defaultReadLimit caps read_rows when the caller does not set one.
const defaultReadLimit = 50

// DB is the database surface the tools need. *pgxpool.Pool satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// column is one entry of a cached table description.
type column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// Register installs the table tools, the tables resource, and the
// sql_explainer prompt on the runtime. Mutating tools invalidate the
// schema cache entry for their table before returning.
func Register(rt *worker.Runtime, db DB, cache *worker.SchemaCache) {
	rt.RegisterTool(
		&mcp.Tool{Name: "ping_db", Description: "Check database connectivity", InputSchema: map[string]any{"type": "object"}},
		func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if _, err := db.Exec(ctx, "SELECT 1"); err != nil {
				return nil, fmt.Errorf("database unreachable: %w", err)
			}
			return textResult("ok"), nil
		},
	)

	rt.RegisterTool(
		&mcp.Tool{Name: "list_tables", Description: "List the tables in the public schema", InputSchema: map[string]any{"type": "object"}},
		func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			names, err := listTables(ctx, db)
			if err != nil {
				return nil, err
			}
			return jsonResult(names)
		},
	)

	rt.RegisterTool(
		&mcp.Tool{Name: "describe_table", Description: "Describe a table's columns", InputSchema: tableSchema},
		func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			table, err := tableArg(req)
			if err != nil {
				return nil, err
			}

			if cached, ok := cache.Get(table); ok {
				return jsonResult(cached)
			}

			cols, err := describeTable(ctx, db, table)
			if err != nil {
				return nil, err
			}
			cache.Put(table, cols)
			return jsonResult(cols)
		},
	)

	rt.RegisterTool(
		&mcp.Tool{
			Name:        "insert_row",
			Description: "Insert one row into a table",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"table": map[string]any{"type": "string", "description": "Table name"},
					"data":  map[string]any{"type": "object", "description": "Column name to value"},
				},
				"required": []string{"table", "data"},
			},
		},
		func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var in struct {
				Table string         `json:"table"`
				Data  map[string]any `json:"data"`
			}
			if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
				return nil, fmt.Errorf("decoding arguments: %w", err)
			}
			if err := checkIdent(in.Table); err != nil {
				return nil, err
			}
			if len(in.Data) == 0 {
				return nil, fmt.Errorf("data must not be empty")
			}

			cols, placeholders, values := buildColumns(in.Data)
			for _, col := range cols {
				if err := checkIdent(col); err != nil {
					return nil, err
				}
			}
			query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
				in.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

			tag, err := db.Exec(ctx, query, values...)
			if err != nil {
				return nil, fmt.Errorf("insert failed: %w", err)
			}

			// Invalidate before the result leaves the handler, so a
			// describe issued after this ack never sees a stale schema.
			cache.Invalidate(in.Table)
			return textResult(fmt.Sprintf("Inserted %d row(s) into %s", tag.RowsAffected(), in.Table)), nil
		},
	)

	rt.RegisterTool(
		&mcp.Tool{
			Name:        "read_rows",
			Description: "Read rows from a table",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"table": map[string]any{"type": "string", "description": "Table name"},
					"limit": map[string]any{"type": "integer", "description": "Maximum rows to return"},
				},
				"required": []string{"table"},
			},
		},
		func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var in struct {
				Table string `json:"table"`
				Limit int    `json:"limit"`
			}
			if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
				return nil, fmt.Errorf("decoding arguments: %w", err)
			}
			if err := checkIdent(in.Table); err != nil {
				return nil, err
			}
			if in.Limit <= 0 {
				in.Limit = defaultReadLimit
			}

			rows, err := db.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT $1", in.Table), in.Limit)
			if err != nil {
				return nil, fmt.Errorf("read failed: %w", err)
			}
			defer rows.Close()

			out, err := rowsToMaps(rows)
			if err != nil {
				return nil, err
			}
			return jsonResult(out)
		},
	)

	rt.RegisterTool(
		&mcp.Tool{
			Name:        "update_rows",
			Description: "Update rows matching an equality filter",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"table": map[string]any{"type": "string", "description": "Table name"},
					"set":   map[string]any{"type": "object", "description": "Column name to new value"},
					"where": map[string]any{"type": "object", "description": "Column name to match value"},
				},
				"required": []string{"table", "set", "where"},
			},
		},
		func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var in struct {
				Table string         `json:"table"`
				Set   map[string]any `json:"set"`
				Where map[string]any `json:"where"`
			}
			if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
				return nil, fmt.Errorf("decoding arguments: %w", err)
			}
			if err := checkIdent(in.Table); err != nil {
				return nil, err
			}
			if len(in.Set) == 0 || len(in.Where) == 0 {
				return nil, fmt.Errorf("set and where must not be empty")
			}

			setCols, _, setVals := buildColumns(in.Set)
			whereCols, _, whereVals := buildColumns(in.Where)
			for _, col := range append(append([]string{}, setCols...), whereCols...) {
				if err := checkIdent(col); err != nil {
					return nil, err
				}
			}

			var assignments, conditions []string
			n := 1
			for _, col := range setCols {
				assignments = append(assignments, fmt.Sprintf("%s = $%d", col, n))
				n++
			}
			for _, col := range whereCols {
				conditions = append(conditions, fmt.Sprintf("%s = $%d", col, n))
				n++
			}

			query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
				in.Table, strings.Join(assignments, ", "), strings.Join(conditions, " AND "))

			tag, err := db.Exec(ctx, query, append(setVals, whereVals...)...)
			if err != nil {
				return nil, fmt.Errorf("update failed: %w", err)
			}

			cache.Invalidate(in.Table)
			return textResult(fmt.Sprintf("Updated %d row(s) in %s", tag.RowsAffected(), in.Table)), nil
		},
	)

	rt.RegisterTool(
		&mcp.Tool{
			Name:        "delete_rows",
			Description: "Delete rows matching an equality filter",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"table": map[string]any{"type": "string", "description": "Table name"},
					"where": map[string]any{"type": "object", "description": "Column name to match value"},
				},
				"required": []string{"table", "where"},
			},
		},
		func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var in struct {
				Table string         `json:"table"`
				Where map[string]any `json:"where"`
			}
			if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
				return nil, fmt.Errorf("decoding arguments: %w", err)
			}
			if err := checkIdent(in.Table); err != nil {
				return nil, err
			}
			if len(in.Where) == 0 {
				return nil, fmt.Errorf("where must not be empty")
			}

			whereCols, _, whereVals := buildColumns(in.Where)
			var conditions []string
			for i, col := range whereCols {
				if err := checkIdent(col); err != nil {
					return nil, err
				}
				conditions = append(conditions, fmt.Sprintf("%s = $%d", col, i+1))
			}

			query := fmt.Sprintf("DELETE FROM %s WHERE %s", in.Table, strings.Join(conditions, " AND "))

			tag, err := db.Exec(ctx, query, whereVals...)
			if err != nil {
				return nil, fmt.Errorf("delete failed: %w", err)
			}

			cache.Invalidate(in.Table)
			return textResult(fmt.Sprintf("Deleted %d row(s) from %s", tag.RowsAffected(), in.Table)), nil
		},
	)

	rt.RegisterResource(
		&mcp.Resource{
			URI:         TablesURI,
			Name:        "tables",
			Description: "Public tables as a JSON array",
			MIMEType:    "application/json",
		},
		func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			names, err := listTables(ctx, db)
			if err != nil {
				return nil, err
			}
			payload, err := json.Marshal(names)
			if err != nil {
				return nil, err
			}
			return &mcp.ReadResourceResult{
				Contents: []*mcp.ResourceContents{{
					URI:      TablesURI,
					MIMEType: "application/json",
					Text:     string(payload),
				}},
			}, nil
		},
	)

	rt.RegisterPrompt(
		&mcp.Prompt{
			Name:        "sql_explainer",
			Description: "Explain what a SQL query does",
			Arguments: []*mcp.PromptArgument{
				{Name: "query", Description: "The SQL query to explain", Required: true},
			},
		},
		func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			query := req.Params.Arguments["query"]
			return &mcp.GetPromptResult{
				Messages: []*mcp.PromptMessage{{
					Role: "user",
					Content: &mcp.TextContent{
						Text: fmt.Sprintf("Explain what this SQL query does, including which rows it touches: %s", query),
					},
				}},
			}, nil
		},
	)
}

var tableSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"table": map[string]any{"type": "string", "description": "Table name"},
	},
	"required": []string{"table"},
}

func tableArg(req *mcp.CallToolRequest) (string, error) {
	var in struct {
		Table string `json:"table"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &in); err != nil {
		return "", fmt.Errorf("decoding arguments: %w", err)
	}
	if err := checkIdent(in.Table); err != nil {
		return "", err
	}
	return in.Table, nil
}

func checkIdent(name string) error {
	if !identPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

// buildColumns flattens a column map into deterministic (sorted) column,
// placeholder, and value slices for query construction.
func buildColumns(data map[string]any) (cols []string, placeholders []string, values []any) {
	cols = make([]string, 0, len(data))
	for col := range data {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	for i, col := range cols {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		values = append(values, data[col])
	}
	return cols, placeholders, values
}

func listTables(ctx context.Context, db DB) ([]string, error) {
	rows, err := db.Query(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func describeTable(ctx context.Context, db DB, table string) ([]column, error) {
	rows, err := db.Query(ctx, `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position
	`, table)
	if err != nil {
		return nil, fmt.Errorf("describing table: %w", err)
	}
	defer rows.Close()

	var cols []column
	for rows.Next() {
		var name, typ, nullable string
		if err := rows.Scan(&name, &typ, &nullable); err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		cols = append(cols, column{Name: name, Type: typ, Nullable: nullable == "YES"})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	return cols, nil
}

// rowsToMaps converts a result set into a slice of column-name-keyed maps.
func rowsToMaps(rows pgx.Rows) ([]map[string]any, error) {
	fields := rows.FieldDescriptions()

	out := []map[string]any{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading row values: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return textResult(string(payload)), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
