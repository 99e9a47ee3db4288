/*
 * Copyright 2023 ICON Foundation
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"fmt"
	"net/url"

	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	DriverMysql    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	MemoryDBName   = ":memory:"
)

// Config locates the signature directory. For sqlite, DBName is the file
// path or ":memory:".
type Config struct {
	Driver   string `json:"driver" validate:"required,oneof=mysql postgres sqlite"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	Host     string `json:"host,omitempty" validate:"required_unless=Driver sqlite"`
	Port     uint   `json:"port,omitempty"`
	DBName   string `json:"dbname" validate:"required"`
}

var (
	configValidator = validator.New()
)

func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return errors.IllegalArgumentError.Wrapf(err, "invalid database config err:%s", err.Error())
	}
	return nil
}

var zeroDefaultDatetimePrecision = 0

func (c Config) dialector() gorm.Dialector {
	switch c.Driver {
	case DriverMysql:
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True",
			c.User, c.Password, c.Host, c.Port, c.DBName)
		return mysql.New(mysql.Config{
			DSN:                      dsn,
			DefaultStringSize:        256,
			DisableDatetimePrecision: true,
			DefaultDatetimePrecision: &zeroDefaultDatetimePrecision,
			DontSupportRenameIndex:   true,
			DontSupportRenameColumn:  true,
		})
	case DriverPostgres:
		dsn := fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s sslmode=disable",
			c.User, c.Password, c.Host, c.Port, c.DBName)
		return postgres.Open(dsn)
	default:
		dsn := "file:" + c.DBName
		if len(c.User) > 0 {
			q := url.Values{}
			q.Set("_auth", "")
			q.Set("_auth_user", c.User)
			q.Set("_auth_pass", c.Password)
			dsn += "?" + q.Encode()
		}
		return sqlite.Open(dsn)
	}
}

func OpenDatabase(cfg Config, l log.Logger) (*gorm.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dl := l.WithFields(log.Fields{log.FieldKeyModule: "database"})
	db, err := gorm.Open(cfg.dialector(), &gorm.Config{
		Logger: newGormLogger(dl, DefaultLogSlowThreshold),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fail to open database driver:%s err:%s", cfg.Driver, err.Error())
	}
	if cfg.Driver == DriverSQLite {
		// sqlite serializes writers, and ":memory:" is per connection
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	dl.Debugf("open database driver:%s dbname:%s", cfg.Driver, cfg.DBName)
	return db, nil
}
