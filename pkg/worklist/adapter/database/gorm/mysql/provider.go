// Package mysql registers the MySQL dialector with the gorm adapter.
package mysql

import (
	"net"
	"strconv"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	gormadapter "github.com/tigerroll/worklist/pkg/worklist/adapter/database/gorm"
	config "github.com/tigerroll/worklist/pkg/worklist/core/config"
)

// Type is the database type handled by this package.
const Type = "mysql"

func init() {
	gormadapter.RegisterDialector(Type, func(cfg config.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString builds a go-sql-driver DSN with parseTime enabled and UTC timestamps.
func ConnectionString(c config.DatabaseConfig) string {
	dsn := gomysql.NewConfig()
	dsn.User = c.User
	dsn.Passwd = c.Password
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	dsn.DBName = c.Database
	dsn.ParseTime = true
	dsn.Loc = time.UTC
	dsn.Params = map[string]string{"charset": "utf8mb4"}
	return dsn.FormatDSN()
}
