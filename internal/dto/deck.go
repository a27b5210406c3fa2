package dto

// ── 破冰卡组 DTO ──

// CardResponse 可见卡片
type CardResponse struct {
	Position string `json:"position"` // 01..NN
	Prompt   string `json:"prompt"`
	Layer    int    `json:"layer"` // 0 为最上层
}

// DeckResponse 卡组当前视图
type DeckResponse struct {
	ID        string         `json:"id"`
	Size      int            `json:"size"`
	Cursor    int            `json:"cursor"`
	Advancing bool           `json:"advancing"`
	Cards     []CardResponse `json:"cards"`
}

// NextCardResponse 翻下一张的受理结果
type NextCardResponse struct {
	Accepted bool         `json:"accepted"` // false 表示上一次翻牌尚未完成
	Deck     DeckResponse `json:"deck"`
}
