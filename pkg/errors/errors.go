package errors

import "errors"

// ErrDataIntegrity 爬虫文档存在但无法解析为合法结构（数据损坏，而非缺失）
var ErrDataIntegrity = errors.New("爬虫数据格式错误")
