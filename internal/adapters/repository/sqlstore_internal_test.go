package repository

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRebind(t *testing.T) {
	Convey("Given a query with placeholders", t, func() {
		q := "SELECT a FROM t WHERE x = ? AND y = ? LIMIT ?"

		Convey("Then postgres gets numbered parameters", func() {
			s := &SQLStore{dialect: dialectPostgres}
			So(s.rebind(q), ShouldEqual, "SELECT a FROM t WHERE x = $1 AND y = $2 LIMIT $3")
		})

		Convey("Then sqlite keeps question marks", func() {
			s := &SQLStore{dialect: dialectSQLite}
			So(s.rebind(q), ShouldEqual, q)
		})
	})
}

func TestSchemaDialects(t *testing.T) {
	Convey("Given the schema for each dialect", t, func() {
		Convey("Then surrogate keys match the dialect", func() {
			So(dialectSQLite.schema()[4], ShouldContainSubstring, "INTEGER PRIMARY KEY AUTOINCREMENT")
			So(dialectPostgres.schema()[4], ShouldContainSubstring, "BIGSERIAL PRIMARY KEY")
			for _, stmt := range dialectPostgres.schema() {
				So(stmt, ShouldNotContainSubstring, "{{id}}")
			}
		})
	})
}

func TestOpenUnknownDriver(t *testing.T) {
	Convey("Given an unsupported driver name", t, func() {
		_, err := Open(context.Background(), "oracle", "")
		So(errors.Is(err, ErrUnknownDriver), ShouldBeTrue)
	})
}

func TestSQLiteDSN(t *testing.T) {
	Convey("Given a sqlite path", t, func() {
		s := &SQLStore{busyTimeout: defaultBusyTimeout}

		Convey("Then pragmas are appended as query parameters", func() {
			dsn := s.sqliteDSN("/tmp/r.db")
			So(dsn, ShouldStartWith, "/tmp/r.db?_pragma=busy_timeout(5000)")
			So(dsn, ShouldContainSubstring, "_txlock=immediate")
			So(s.sqliteDSN("file:r.db?cache=shared"), ShouldContainSubstring, "cache=shared&_pragma")
		})
	})
}
