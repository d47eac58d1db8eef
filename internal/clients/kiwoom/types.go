package kiwoom

// Wire types. Kiwoom encodes every number as a zero-padded string that may
// carry a leading sign; see parse.go.

type envelope struct {
	ReturnCode int    `json:"return_code"`
	ReturnMsg  string `json:"return_msg"`
}

type tokenRequest struct {
	GrantType string `json:"grant_type"`
	AppKey    string `json:"appkey"`
	SecretKey string `json:"secretkey"`
}

// TokenResponse is the au10001 reply
type TokenResponse struct {
	Token      string `json:"token"`
	TokenType  string `json:"token_type"`
	ExpiresDT  string `json:"expires_dt"` // yyyyMMddHHmmss, KST
	ReturnCode int    `json:"return_code"`
	ReturnMsg  string `json:"return_msg"`
}

type accountEvaluationRequest struct {
	QueryType string `json:"qry_tp"`       // 1: 합산, 2: 개별
	Exchange  string `json:"dmst_stex_tp"` // KRX, NXT
}

// AccountEvaluationResponse is the kt00018 reply
type AccountEvaluationResponse struct {
	TotalPurchase     string    `json:"tot_pur_amt"`
	TotalEvaluation   string    `json:"tot_evlt_amt"`
	TotalEvaluationPL string    `json:"tot_evlt_pl"`
	TotalProfitRate   string    `json:"tot_prft_rt"`
	EstimatedAsset    string    `json:"prsm_dpst_aset_amt"` // 추정예탁자산
	Holdings          []Holding `json:"acnt_evlt_remn_indv_tot"`
}

// Holding is one row of acnt_evlt_remn_indv_tot
type Holding struct {
	Code          string `json:"stk_cd"` // e.g. A005930
	Name          string `json:"stk_nm"`
	Quantity      string `json:"rmnd_qty"`
	PurchasePrice string `json:"pur_pric"`
	CurrentPrice  string `json:"cur_prc"` // signed by direction of the day's move
	EvaluationPL  string `json:"evltv_prft"`
	ProfitRate    string `json:"prft_rt"`
}

type depositRequest struct {
	QueryType string `json:"qry_tp"` // 3: 추정조회, 2: 일반조회
}

// DepositResponse is the kt00001 reply
type DepositResponse struct {
	Deposit   string `json:"entr"`     // 예수금
	D2Deposit string `json:"d2_entra"` // D+2 추정예수금
	Orderable string `json:"ord_alow_amt"`
}
