package sqlite

import (
	"database/sql"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/metaclip/metaclip/pkg/metaclip"
)

// scanQueryRows maps arbitrary SELECT projections onto QueryRow by column
// name. Columns outside the four entity fields are ignored; fields absent
// from the projection stay empty.
func scanQueryRows(rows *sql.Rows) ([]metaclip.QueryRow, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := make([]metaclip.QueryRow, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		var row metaclip.QueryRow
		for i, col := range cols {
			switch strings.ToLower(col) {
			case "id":
				row.ID = asString(vals[i])
			case "type":
				row.Type = asString(vals[i])
			case "name":
				row.Name = asString(vals[i])
			case "content":
				row.Content = base64.StdEncoding.EncodeToString(asBytes(vals[i]))
			}
		}
		result = append(result, row)
	}

	return result, rows.Err()
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func asBytes(v any) []byte {
	switch t := v.(type) {
	case nil:
		return nil
	case []byte:
		return t
	case string:
		return []byte(t)
	default:
		return []byte(fmt.Sprint(t))
	}
}
