package services

import (
	"errors"
	"fmt"
	"log"
	"metafactory-twin/models"
	"os"
	"strconv"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNoDatabase - DB 없이 실행 중
var ErrNoDatabase = errors.New("database not configured")

// DB 인스턴스
var db *gorm.DB

// InitDatabase - 환경 변수로 DB 연결 (DB_DRIVER=mysql|sqlite)
func InitDatabase() error {
	driver := strings.ToLower(envString("DB_DRIVER", "mysql"))

	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		path := envString("SQLITE_PATH", "twin.db")
		dialector = sqlite.Open(path)
		log.Printf("📡 SQLite 사용: %s", path)

	case "mysql":
		host := os.Getenv("MYSQL_HOST")
		user := os.Getenv("MYSQL_USER")
		password := os.Getenv("MYSQL_PASSWORD")
		dbname := os.Getenv("MYSQL_DATABASE")

		if host == "" || user == "" || password == "" || dbname == "" {
			return fmt.Errorf("MySQL 환경 변수가 모두 설정되지 않았습니다: MYSQL_HOST, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE")
		}

		port, err := strconv.Atoi(os.Getenv("MYSQL_PORT"))
		if err != nil || port == 0 {
			port = 3306 // 기본 포트
		}

		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			user, password, host, port, dbname)
		dialector = mysql.Open(dsn)
		log.Printf("📡 연결 정보: %s:%s@%s:%d/%s", user, maskSecret(password), host, port, dbname)

	default:
		return fmt.Errorf("지원하지 않는 DB_DRIVER: %s", driver)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return fmt.Errorf("DB 연결 실패: %w", err)
	}
	if err := UseDatabase(conn); err != nil {
		return err
	}

	log.Printf("✅ %s 연결 및 마이그레이션 완료", driver)
	return nil
}

// UseDatabase - 이미 열린 연결을 마이그레이션 후 사용
func UseDatabase(conn *gorm.DB) error {
	if err := conn.AutoMigrate(&models.TwinLog{}); err != nil {
		return fmt.Errorf("마이그레이션 실패: %w", err)
	}
	db = conn
	return nil
}

// GetDB - GORM 인스턴스 반환 (없으면 nil)
func GetDB() *gorm.DB {
	return db
}

func maskSecret(s string) string {
	if len(s) <= 3 {
		return "***"
	}
	return s[:3] + "***"
}
