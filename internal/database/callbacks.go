package database

import (
	"reflect"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MetricsRecorder is an interface for recording database metrics
type MetricsRecorder interface {
	RecordDBQuery(operation, table string, duration time.Duration, err error)
}

var uuidType = reflect.TypeOf(uuid.UUID{})

// RegisterUUIDCallback assigns a fresh UUID to any primary key left at
// its zero value before insert. Postgres has a column default for this;
// the callback keeps ID generation uniform across drivers.
func RegisterUUIDCallback(db *gorm.DB) {
	db.Callback().Create().Before("gorm:create").Register("generate_uuid", func(tx *gorm.DB) {
		if tx.Statement.Schema == nil {
			return
		}
		field := tx.Statement.Schema.LookUpField("ID")
		if field == nil || field.FieldType != uuidType {
			return
		}

		assign := func(rv reflect.Value) {
			if v, zero := field.ValueOf(tx.Statement.Context, rv); zero || v.(uuid.UUID) == uuid.Nil {
				_ = field.Set(tx.Statement.Context, rv, uuid.New())
			}
		}

		switch tx.Statement.ReflectValue.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < tx.Statement.ReflectValue.Len(); i++ {
				assign(tx.Statement.ReflectValue.Index(i))
			}
		case reflect.Struct:
			assign(tx.Statement.ReflectValue)
		}
	})
}

// RegisterMetricsCallbacks registers GORM callbacks for query metrics
func RegisterMetricsCallbacks(db *gorm.DB, recorder MetricsRecorder) {
	before := func(tx *gorm.DB) {
		tx.InstanceSet("query_start_time", time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			startTime, ok := tx.InstanceGet("query_start_time")
			if !ok {
				return
			}
			table := tx.Statement.Table
			if table == "" {
				table = "unknown"
			}
			recorder.RecordDBQuery(operation, table, time.Since(startTime.(time.Time)), tx.Error)
		}
	}

	db.Callback().Query().Before("gorm:query").Register("metrics:query_before", before)
	db.Callback().Query().After("gorm:query").Register("metrics:query_after", after("select"))

	db.Callback().Create().Before("gorm:create").Register("metrics:create_before", before)
	db.Callback().Create().After("gorm:create").Register("metrics:create_after", after("insert"))

	db.Callback().Update().Before("gorm:update").Register("metrics:update_before", before)
	db.Callback().Update().After("gorm:update").Register("metrics:update_after", after("update"))

	db.Callback().Delete().Before("gorm:delete").Register("metrics:delete_before", before)
	db.Callback().Delete().After("gorm:delete").Register("metrics:delete_after", after("delete"))
}
