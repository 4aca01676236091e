package domain

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed timer_record.schema.json
var timerRecordSchema string

const timerRecordSchemaURL = "timer_record.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func recordSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft7
		if err := c.AddResource(timerRecordSchemaURL, strings.NewReader(timerRecordSchema)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(timerRecordSchemaURL)
	})
	return schema, schemaErr
}

// DecodeRecord 校验并解码一条 JSON 形式的定时器记录。
// v 必须是用 UseNumber 解出来的通用值，雪花 id 超过 2^53，走 float64 会丢精度。
func DecodeRecord(v any) (TimerRecord, error) {
	var rec TimerRecord
	s, err := recordSchema()
	if err != nil {
		return rec, fmt.Errorf("compile timer schema: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrMalformedTimer, err)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &rec,
	})
	if err != nil {
		return rec, err
	}
	if err := dec.Decode(v); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrMalformedTimer, err)
	}
	return rec, nil
}

// ParseRecords 解析定时器记录数组。坏记录单独报错并跳过，不影响其余记录。
func ParseRecords(raw []byte) ([]TimerRecord, []error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	d := json.NewDecoder(bytes.NewReader(raw))
	d.UseNumber()
	var items []any
	if err := d.Decode(&items); err != nil {
		return nil, []error{fmt.Errorf("%w: %v", ErrMalformedTimer, err)}
	}
	return DecodeRecords(items)
}

func DecodeRecords(items []any) ([]TimerRecord, []error) {
	out := make([]TimerRecord, 0, len(items))
	var errs []error
	for i, item := range items {
		rec, err := DecodeRecord(item)
		if err != nil {
			errs = append(errs, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		out = append(out, rec)
	}
	return out, errs
}
