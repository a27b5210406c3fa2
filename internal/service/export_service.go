package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/cjenwere4/5590-check-in-app/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoRecords    = errors.New("该活动暂无签到记录")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 仅供运维命令行使用，不暴露 HTTP 接口
//   - 导出以 bytes.Buffer 返回，由调用方决定写入文件或其他输出
//   - Excel 格式：单个 Sheet，一行一条签到记录，按采集时间升序
type ExportService interface {
	// ExportCheckIns 导出指定活动的签到记录；eventLabel 为空时导出全部
	ExportCheckIns(ctx context.Context, eventLabel string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

var exportHeaders = []string{
	"采集时间", "姓名", "地址", "纬度", "经度", "精度(米)", "坐标来源", "会话标识", "设备 UA",
}

// ═══════════════════════════════════════════════════════════
// ExportCheckIns — 导出签到记录为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "签到记录"
//   - 第 1 行标题：活动名称 + 记录数
//   - 第 2 行表头，第 3 行起为数据；坐标缺失的单元格留空
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportCheckIns(ctx context.Context, eventLabel string) (*bytes.Buffer, string, error) {
	// 1. 查询签到记录
	records, err := s.repo.CheckIn.ListByEvent(ctx, eventLabel)
	if err != nil {
		s.logger.Error("查询签到记录失败", zap.Error(err))
		return nil, "", err
	}
	if len(records) == 0 {
		return nil, "", ErrExportNoRecords
	}

	title := eventLabel
	if title == "" {
		title = "全部活动"
	}

	// 2. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "签到记录"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	// 设置列宽
	widths := []float64{22, 16, 48, 12, 12, 10, 20, 38, 40}
	for i, w := range widths {
		col := colName(i + 1)
		f.SetColWidth(sheetName, col, col, w)
	}

	// 样式
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s 签到记录（共 %d 条）", title, len(records)))
	f.MergeCell(sheetName, "A1", cell(colName(len(exportHeaders)), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	for i, h := range exportHeaders {
		f.SetCellValue(sheetName, cell(colName(i+1), row), h)
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(colName(len(exportHeaders)), row), headerStyle)

	// 数据行
	row = 3
	for _, rec := range records {
		values := []interface{}{
			rec.CapturedAt.UTC().Format(time.RFC3339),
			rec.Name,
			rec.Address,
			floatOrEmpty(rec.Latitude),
			floatOrEmpty(rec.Longitude),
			floatOrEmpty(rec.AccuracyM),
			string(rec.LocationSource),
			rec.SessionID,
			stringOrEmpty(rec.DeviceUserAgent),
		}
		for i, v := range values {
			f.SetCellValue(sheetName, cell(colName(i+1), row), v)
		}
		row++
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("签到记录_%s.xlsx", title)
	return buf, filename, nil
}

// colName 列号（1 起始）转列名
func colName(n int) string {
	name, _ := excelize.ColumnNumberToName(n)
	return name
}

// cell 拼接单元格坐标
func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func floatOrEmpty(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
