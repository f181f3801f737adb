// Package aggregator 封装兑换聚合服务的 HTTP 客户端。聚合方负责询价、路由与
// 交易广播；本系统只提交参数并转交签名结果。所有供应商错误在此边界被归类为
// 统一错误码，下游不再对错误文本做字符串匹配。
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	xerrors "SolSwap-Bot/internal/errors"
)

const (
	defaultTimeout = 30 * time.Second

	// slippageVendorCode 是供应商在滑点超限时返回的程序错误码。
	slippageVendorCode = "0x1771"
)

const (
	// CodeAggregatorFailure 表示聚合服务不可达或返回非业务错误。
	CodeAggregatorFailure xerrors.Code = "AGGREGATOR_FAILURE"
	// CodeVendorError 表示聚合服务返回了结构化业务错误。
	CodeVendorError xerrors.Code = "AGGREGATOR_VENDOR_ERROR"
	// CodeSlippageExceeded 表示报价在成交前发生了超限的价格波动。
	CodeSlippageExceeded xerrors.Code = "SLIPPAGE_EXCEEDED"
)

func init() {
	xerrors.Register(CodeAggregatorFailure, xerrors.Attributes{
		Message:    "swap aggregator failure",
		Severity:   xerrors.SeverityWarning,
		Retryable:  true,
		UserFacing: true,
	})
	xerrors.Register(CodeVendorError, xerrors.Attributes{
		Message:    "swap aggregator vendor error",
		Severity:   xerrors.SeverityWarning,
		Retryable:  false,
		UserFacing: true,
	})
	xerrors.Register(CodeSlippageExceeded, xerrors.Attributes{
		Message:    "price moved beyond slippage tolerance",
		Severity:   xerrors.SeverityInfo,
		Retryable:  false,
		UserFacing: true,
	})
}

// Order 描述一笔已定价但未签名的兑换订单。报价与未签名交易绑定，
// 不能跨签名重试复用。OutAmount 以目标代币的最小单位计，换算成展示
// 数量需要目标代币的精度，由调用方负责。
type Order struct {
	RequestID           string
	UnsignedTransaction string
	OutAmount           uint64
	OutputMint          string
}

// Execution 描述订单提交后的结算结果。
type Execution struct {
	Signature string
	Status    string
}

// Balance 描述某种代币的余额。
type Balance struct {
	Amount   string  `json:"amount"`
	UIAmount float64 `json:"uiAmount"`
	Frozen   bool    `json:"isFrozen"`
}

// OrderParams 是请求报价所需的参数。金额使用最小单位。
type OrderParams struct {
	InputMint      string
	OutputMint     string
	AmountLamports uint64
	Taker          string
}

// Config 描述了调用聚合服务所需的信息。
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client 通过 HTTP 调用聚合服务。
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient 根据配置创建聚合服务客户端。
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "未提供聚合服务地址")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// orderResponse 是报价接口的最小响应结构。
type orderResponse struct {
	Transaction  string `json:"transaction"`
	RequestID    string `json:"requestId"`
	OutAmount    string `json:"outAmount"`
	OutputMint   string `json:"outputMint"`
	ErrorMessage string `json:"error"`
}

// GetOrder 请求一笔定价订单：输入资产、输出资产、最小单位金额与成交地址。
func (c *Client) GetOrder(ctx context.Context, params OrderParams) (*Order, error) {
	if params.InputMint == "" || params.OutputMint == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "未指定兑换资产")
	}
	if params.AmountLamports == 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "兑换金额不能为零")
	}
	if params.Taker == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "未指定成交地址")
	}

	query := url.Values{}
	query.Set("inputMint", params.InputMint)
	query.Set("outputMint", params.OutputMint)
	query.Set("amount", strconv.FormatUint(params.AmountLamports, 10))
	query.Set("taker", params.Taker)

	var decoded orderResponse
	if err := c.do(ctx, http.MethodGet, "/order?"+query.Encode(), nil, &decoded); err != nil {
		return nil, err
	}
	if decoded.ErrorMessage != "" {
		return nil, classifyVendorError(decoded.ErrorMessage, "")
	}
	if decoded.Transaction == "" || decoded.RequestID == "" {
		return nil, xerrors.New(CodeAggregatorFailure, "聚合服务返回的订单不完整",
			xerrors.WithRetryable(false))
	}

	outAmount, _ := strconv.ParseUint(decoded.OutAmount, 10, 64)
	return &Order{
		RequestID:           decoded.RequestID,
		UnsignedTransaction: decoded.Transaction,
		OutAmount:           outAmount,
		OutputMint:          decoded.OutputMint,
	}, nil
}

// executeResponse 是订单提交接口的最小响应结构。
type executeResponse struct {
	Status       string `json:"status"`
	Signature    string `json:"signature"`
	ErrorMessage string `json:"error"`
	Code         int    `json:"code"`
}

// SubmitOrder 提交已签名交易与对应的报价关联 ID。
func (c *Client) SubmitOrder(ctx context.Context, signedTxBase64, requestID string) (*Execution, error) {
	if strings.TrimSpace(signedTxBase64) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "已签名交易不能为空")
	}
	if strings.TrimSpace(requestID) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "requestID 不能为空")
	}

	body := map[string]string{
		"signedTransaction": signedTxBase64,
		"requestId":         requestID,
	}
	var decoded executeResponse
	if err := c.do(ctx, http.MethodPost, "/execute", body, &decoded); err != nil {
		return nil, err
	}
	if !strings.EqualFold(decoded.Status, "success") {
		vendorCode := ""
		if decoded.Code != 0 {
			vendorCode = fmt.Sprintf("0x%x", decoded.Code)
		}
		return nil, classifyVendorError(decoded.ErrorMessage, vendorCode)
	}
	if decoded.Signature == "" {
		return nil, xerrors.New(CodeAggregatorFailure, "聚合服务未返回交易签名",
			xerrors.WithRetryable(false))
	}
	return &Execution{Signature: decoded.Signature, Status: decoded.Status}, nil
}

// GetBalances 查询地址下全部代币余额，按符号或 mint 索引。
func (c *Client) GetBalances(ctx context.Context, address string) (map[string]Balance, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "地址不能为空")
	}

	balances := make(map[string]Balance)
	if err := c.do(ctx, http.MethodGet, "/balances/"+address, nil, &balances); err != nil {
		return nil, err
	}
	return balances, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "序列化聚合请求失败")
		}
		reader = strings.NewReader(string(encoded))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return xerrors.Wrap(CodeAggregatorFailure, err, "构建聚合请求失败")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return xerrors.Wrap(CodeAggregatorFailure, err, "请求聚合服务失败")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		detail := strings.TrimSpace(string(raw))

		// 供应商把业务错误也放在非 2xx 响应里，先尝试按结构化错误解析。
		var vendor struct {
			ErrorMessage string `json:"error"`
			Code         int    `json:"code"`
		}
		if json.Unmarshal(raw, &vendor) == nil && vendor.ErrorMessage != "" {
			vendorCode := ""
			if vendor.Code != 0 {
				vendorCode = fmt.Sprintf("0x%x", vendor.Code)
			}
			return classifyVendorError(vendor.ErrorMessage, vendorCode)
		}

		retryable := resp.StatusCode >= http.StatusInternalServerError
		return xerrors.New(CodeAggregatorFailure,
			fmt.Sprintf("聚合服务返回错误状态 %d", resp.StatusCode),
			xerrors.WithRetryable(retryable),
			xerrors.WithMetadata("vendor_error", detail))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return xerrors.Wrap(CodeAggregatorFailure, err, "解析聚合响应失败",
			xerrors.WithRetryable(false))
	}
	return nil
}

// classifyVendorError 在客户端边界把供应商错误归类为统一错误码。
func classifyVendorError(message, vendorCode string) error {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		trimmed = "vendor returned an unspecified error"
	}

	lowered := strings.ToLower(trimmed)
	if vendorCode == slippageVendorCode ||
		strings.Contains(lowered, slippageVendorCode) ||
		strings.Contains(lowered, "slippage") {
		return xerrors.New(CodeSlippageExceeded, "报价超出滑点容忍度",
			xerrors.WithMetadata("vendor_error", trimmed))
	}

	return xerrors.New(CodeVendorError, "聚合服务返回业务错误",
		xerrors.WithMetadata("vendor_error", trimmed),
		xerrors.WithMetadata("vendor_code", vendorCode))
}
