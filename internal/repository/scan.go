package repository

import (
	"fmt"
	"strings"
)

// rowScanner pgx.Row 與 pgx.Rows 共用
type rowScanner interface {
	Scan(dest ...any) error
}

// whereBuilder 依序累積條件與參數，placeholder 編號自動遞增
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereBuilder) addRaw(cond string) {
	w.conds = append(w.conds, cond)
}

// next 回傳下一個 placeholder，用在 LIMIT / OFFSET
func (w *whereBuilder) next(arg any) string {
	w.args = append(w.args, arg)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) clause() string {
	if len(w.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conds, " AND ")
}
