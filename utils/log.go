package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
	"github.com/topfreegames/pitaya/v3/pkg/logger/interfaces"
	logruswrapper "github.com/topfreegames/pitaya/v3/pkg/logger/logrus"
)

// LogConfig 日志配置
type LogConfig struct {
	Dir      string        // 日志目录，默认./logs
	MaxAge   time.Duration // 保留时长，默认7天
	Rotation time.Duration // 轮转周期，默认24小时
}

func (c *LogConfig) fill() {
	if c.Dir == "" {
		c.Dir = "./logs"
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 7 * 24 * time.Hour
	}
	if c.Rotation <= 0 {
		c.Rotation = 24 * time.Hour
	}
}

// Formatter 单行日志格式：时间 [级别] 文件:行 函数 内容
type Formatter struct{}

func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format(time.DateTime)
	level := strings.ToLower(entry.Level.String())

	var location string
	if entry.Caller != nil {
		fileName := filepath.Base(entry.Caller.File)
		parts := strings.Split(entry.Caller.Function, ".")
		funcName := parts[len(parts)-1]
		location = fmt.Sprintf("%s:%d %s", fileName, entry.Caller.Line, funcName)
	}

	return []byte(fmt.Sprintf("%s [%s] %s %s\n", timestamp, level, location, entry.Message)), nil
}

// Logger 创建按天轮转的日志器，包装成pitaya的logger接口
func Logger(level logrus.Level, conf LogConfig) interfaces.Logger {
	conf.fill()

	l := logrus.New()
	writer, err := newRotateWriter(conf)
	if err != nil {
		logrus.Fatalf("failed to create log writer: %v", err)
	}
	l.SetOutput(writer)
	l.SetReportCaller(true)
	l.Formatter = &Formatter{}
	l.SetLevel(level)
	return logruswrapper.NewWithFieldLogger(l)
}

func newRotateWriter(conf LogConfig) (*rotatelogs.RotateLogs, error) {
	if err := os.MkdirAll(conf.Dir, os.ModePerm); err != nil {
		return nil, err
	}
	program := filepath.Base(os.Args[0])
	pattern := filepath.Join(conf.Dir, fmt.Sprintf("%s-%%Y%%m%%d.log", program))
	return rotatelogs.New(
		pattern,
		rotatelogs.WithMaxAge(conf.MaxAge),
		rotatelogs.WithRotationTime(conf.Rotation),
	)
}
