package logger

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// kvEncoder writes the console prefix (time, level, caller, message) and then
// every field as logfmt-style key=value. Fields bound with With are kept in
// the embedded map and printed sorted, before the entry's own fields.
type kvEncoder struct {
	*zapcore.MapObjectEncoder
	prefix     zapcore.Encoder
	lineEnding string
}

func newKVEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	ending := cfg.LineEnding
	if ending == "" {
		ending = zapcore.DefaultLineEnding
	}
	return &kvEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		prefix:           zapcore.NewConsoleEncoder(cfg),
		lineEnding:       ending,
	}
}

func (e *kvEncoder) Clone() zapcore.Encoder {
	bound := zapcore.NewMapObjectEncoder()
	for k, v := range e.Fields {
		bound.Fields[k] = v
	}
	return &kvEncoder{MapObjectEncoder: bound, prefix: e.prefix, lineEnding: e.lineEnding}
}

func (e *kvEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	stack := entry.Stack
	entry.Stack = ""
	buf, err := e.prefix.EncodeEntry(entry, nil)
	if err != nil {
		return nil, err
	}
	line := strings.TrimSuffix(buf.String(), e.lineEnding)
	buf.Reset()
	buf.AppendString(line)

	appendPairs(buf, e.Fields)
	for _, f := range fields {
		m := zapcore.NewMapObjectEncoder()
		f.AddTo(m)
		appendPairs(buf, m.Fields)
	}

	if stack != "" {
		buf.AppendString(e.lineEnding)
		buf.AppendString(stack)
	}
	buf.AppendString(e.lineEnding)
	return buf, nil
}

// appendPairs writes fields sorted by key; zap.Error can add both
// "error" and "errorVerbose" from a single field.
func appendPairs(buf *buffer.Buffer, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.AppendByte(' ')
		buf.AppendString(k)
		buf.AppendByte('=')
		buf.AppendString(logfmtValue(fields[k]))
	}
}

func logfmtValue(v any) string {
	s := fmt.Sprint(v)
	if s == "" || strings.ContainsAny(s, " =\"\t\r\n") {
		return strconv.Quote(s)
	}
	return s
}
