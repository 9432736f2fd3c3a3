package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/tidwall/gjson"

	"github.com/shaiso/aybuctl/internal/task"
)

// Output управляет форматированием вывода CLI.
//
// Ответы API выводятся как есть, в порядке полей документа: разбор
// идёт через gjson, без промежуточных map.
type Output struct {
	jsonMode bool
	w        io.Writer // stdout для данных
	errW     io.Writer // stderr для сообщений
}

// NewOutput создаёт Output. Если jsonMode=true, данные выводятся в JSON.
func NewOutput(jsonMode bool) *Output {
	return NewOutputTo(jsonMode, os.Stdout, os.Stderr)
}

// NewOutputTo создаёт Output с явными потоками вывода.
func NewOutputTo(jsonMode bool, w, errW io.Writer) *Output {
	return &Output{
		jsonMode: jsonMode,
		w:        w,
		errW:     errW,
	}
}

// JSONMode сообщает, включён ли вывод в JSON.
func (o *Output) JSONMode() bool {
	return o.jsonMode
}

// List выводит коллекцию: элементы массива или ключи объекта.
func (o *Output) List(body []byte) {
	if o.raw(body) {
		return
	}
	doc := gjson.ParseBytes(body)
	doc.ForEach(func(key, value gjson.Result) bool {
		if doc.IsObject() {
			fmt.Fprintf(o.w, " * %s\n", key.String())
		} else {
			fmt.Fprintf(o.w, " * %s\n", value.String())
		}
		return true
	})
}

// Sorted выводит коллекцию, как List, но в алфавитном порядке.
func (o *Output) Sorted(body []byte) {
	if o.raw(body) {
		return
	}
	doc := gjson.ParseBytes(body)
	var items []string
	doc.ForEach(func(key, value gjson.Result) bool {
		if doc.IsObject() {
			items = append(items, key.String())
		} else {
			items = append(items, value.String())
		}
		return true
	})
	sort.Strings(items)
	for _, item := range items {
		fmt.Fprintf(o.w, " * %s\n", item)
	}
}

// Fields выводит поля объекта: "key: value".
func (o *Output) Fields(body []byte) {
	if o.raw(body) {
		return
	}
	o.fields(gjson.ParseBytes(body), "")
}

func (o *Output) fields(doc gjson.Result, indent string) {
	doc.ForEach(func(key, value gjson.Result) bool {
		fmt.Fprintf(o.w, "%s%-20s: %s\n", indent, key.String(), value.String())
		return true
	})
}

// Nested выводит объект объектов: заголовок по ключу, под ним поля.
func (o *Output) Nested(body []byte) {
	if o.raw(body) {
		return
	}
	gjson.ParseBytes(body).ForEach(func(key, value gjson.Result) bool {
		fmt.Fprintf(o.w, " * %s:\n", key.String())
		o.fields(value, "   ")
		return true
	})
}

// Lines выводит массив строк построчно (логи задачи).
func (o *Output) Lines(body []byte) {
	if o.raw(body) {
		return
	}
	gjson.ParseBytes(body).ForEach(func(_, value gjson.Result) bool {
		fmt.Fprintln(o.w, strings.TrimSpace(value.String()))
		return true
	})
}

// Records выводит объект объектов таблицей: первая колонка — ключ,
// остальные — значения полей paths каждой записи.
func (o *Output) Records(body []byte, headers []string, paths []string) {
	if o.raw(body) {
		return
	}
	var rows [][]string
	gjson.ParseBytes(body).ForEach(func(key, value gjson.Result) bool {
		row := []string{key.String()}
		for _, r := range gjson.GetMany(value.Raw, paths...) {
			row = append(row, r.String())
		}
		rows = append(rows, row)
		return true
	})
	o.Table(headers, rows)
}

// Table выводит данные в виде таблицы через tabwriter.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)

	// Заголовки
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	// Разделитель
	dashes := make([]string, len(headers))
	for i, h := range headers {
		dashes[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(dashes, "\t"))

	// Строки данных
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	tw.Flush()
}

// JSON выводит данные в формате JSON с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// raw печатает тело как есть в JSON-режиме. Пустое тело не выводится
// ни в каком режиме. Возвращает true, если выводить больше нечего.
func (o *Output) raw(body []byte) bool {
	if len(body) == 0 {
		return true
	}
	if !o.jsonMode {
		return false
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		o.w.Write(body)
		fmt.Fprintln(o.w)
		return true
	}
	buf.WriteByte('\n')
	buf.WriteTo(o.w)
	return true
}

// outcomeJSON — итог задачи для --json.
type outcomeJSON struct {
	ID       string          `json:"id"`
	TaskID   string          `json:"task_id,omitempty"`
	Status   task.Status     `json:"status"`
	State    task.State      `json:"state"`
	Events   int             `json:"events"`
	Message  string          `json:"message,omitempty"`
	Response json.RawMessage `json:"response,omitempty"`
}

// Outcome выводит итог задачи. В текстовом режиме ход задачи уже
// выведен логгером, поэтому печатается только статус.
func (o *Output) Outcome(out *task.Outcome) {
	if o.jsonMode {
		v := outcomeJSON{
			ID:       out.ID,
			TaskID:   out.TaskID,
			Status:   out.Status,
			State:    out.State,
			Events:   out.Events,
			Response: out.Body(),
		}
		if out.Last != nil {
			v.Message = out.Last.Message
		}
		o.JSON(v)
		return
	}

	switch out.State {
	case task.StateDeferredDone:
		o.Success(fmt.Sprintf("Task %s deferred: it will run on the server", out.ID))
	case task.StateSubmitted:
		o.Success(fmt.Sprintf("Task %s submitted", out.ID))
	case task.StateFinished:
		if out.Last != nil && out.Last.Message != "" {
			o.Success(fmt.Sprintf("Task %s finished: %s", out.ID, out.Last.Message))
		} else {
			o.Success(fmt.Sprintf("Task %s finished", out.ID))
		}
	}
}

// Success выводит сообщение об успехе в stderr.
func (o *Output) Success(msg string) {
	fmt.Fprintln(o.errW, msg)
}

// Notice выводит предупреждение в stderr.
func (o *Output) Notice(msg string) {
	fmt.Fprintln(o.errW, "Warning: "+msg)
}

// Error выводит сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintln(o.errW, "Error: "+msg)
}
