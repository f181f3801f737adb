// Package custody 封装钱包托管服务的 HTTP 客户端。私钥由托管方保管，
// 本系统只持有 walletID 并通过远端接口完成签名。
package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	xerrors "SolSwap-Bot/internal/errors"
)

const (
	defaultTimeout = 30 * time.Second

	// CodeCustodyFailure 表示托管服务调用失败。
	CodeCustodyFailure xerrors.Code = "CUSTODY_FAILURE"
)

func init() {
	xerrors.Register(CodeCustodyFailure, xerrors.Attributes{
		Message:    "wallet custody service failure",
		Severity:   xerrors.SeverityWarning,
		Retryable:  true,
		UserFacing: true,
	})
}

// Wallet 描述托管方返回的钱包信息。
type Wallet struct {
	ID      string `json:"id"`
	Address string `json:"address"`
	Chain   string `json:"chain_type,omitempty"`
}

// Config 描述了调用托管服务所需的信息。
type Config struct {
	BaseURL   string
	AppID     string
	AppSecret string
	Timeout   time.Duration
}

// Client 通过 HTTP 调用托管服务完成钱包创建与交易签名。
type Client struct {
	baseURL    string
	appID      string
	appSecret  string
	httpClient *http.Client
}

// NewClient 根据配置创建托管服务客户端。
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "未提供托管服务地址")
	}
	if strings.TrimSpace(cfg.AppID) == "" || strings.TrimSpace(cfg.AppSecret) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "未提供托管服务凭证")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:   baseURL,
		appID:     strings.TrimSpace(cfg.AppID),
		appSecret: strings.TrimSpace(cfg.AppSecret),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// CreateWallet 为用户创建一个新的托管钱包。
func (c *Client) CreateWallet(ctx context.Context, chainKind string) (*Wallet, error) {
	chainKind = strings.TrimSpace(chainKind)
	if chainKind == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "未指定链类型")
	}

	body := map[string]string{"chain_type": chainKind}
	var wallet Wallet
	if err := c.do(ctx, http.MethodPost, "/v1/wallets", body, &wallet); err != nil {
		return nil, err
	}
	if wallet.ID == "" || wallet.Address == "" {
		return nil, xerrors.New(CodeCustodyFailure, "托管服务返回的钱包信息不完整",
			xerrors.WithRetryable(false))
	}
	return &wallet, nil
}

// GetWallet 查询已有托管钱包的地址。
func (c *Client) GetWallet(ctx context.Context, walletID string) (*Wallet, error) {
	walletID = strings.TrimSpace(walletID)
	if walletID == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "walletID 不能为空")
	}

	var wallet Wallet
	if err := c.do(ctx, http.MethodGet, "/v1/wallets/"+walletID, nil, &wallet); err != nil {
		return nil, err
	}
	if wallet.Address == "" {
		return nil, xerrors.New(CodeCustodyFailure, "托管服务未返回钱包地址",
			xerrors.WithRetryable(false))
	}
	return &wallet, nil
}

// SignTransaction 将未签名交易交由托管方签名，返回 base64 编码的已签名交易。
func (c *Client) SignTransaction(ctx context.Context, walletID, rawTxBase64 string) (string, error) {
	walletID = strings.TrimSpace(walletID)
	if walletID == "" {
		return "", xerrors.New(xerrors.CodeInvalidArgument, "walletID 不能为空")
	}
	if strings.TrimSpace(rawTxBase64) == "" {
		return "", xerrors.New(xerrors.CodeInvalidArgument, "待签名交易不能为空")
	}

	body := map[string]any{
		"method": "signTransaction",
		"params": map[string]string{
			"transaction": rawTxBase64,
			"encoding":    "base64",
		},
	}
	var decoded struct {
		Data struct {
			SignedTransaction string `json:"signed_transaction"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/wallets/"+walletID+"/rpc", body, &decoded); err != nil {
		return "", err
	}
	signed := strings.TrimSpace(decoded.Data.SignedTransaction)
	if signed == "" {
		return "", xerrors.New(CodeCustodyFailure, "托管服务未返回已签名交易",
			xerrors.WithRetryable(false))
	}
	return signed, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "序列化托管请求失败")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return xerrors.Wrap(CodeCustodyFailure, err, "构建托管请求失败")
	}
	req.SetBasicAuth(c.appID, c.appSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return xerrors.Wrap(CodeCustodyFailure, err, "请求托管服务失败")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		detail := strings.TrimSpace(string(raw))
		// 4xx 属于请求本身的问题，重试不会改变结果。
		retryable := resp.StatusCode >= http.StatusInternalServerError
		return xerrors.New(CodeCustodyFailure,
			fmt.Sprintf("托管服务返回错误状态 %d", resp.StatusCode),
			xerrors.WithRetryable(retryable),
			xerrors.WithMetadata("vendor_error", detail))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return xerrors.Wrap(CodeCustodyFailure, err, "解析托管响应失败",
			xerrors.WithRetryable(false))
	}
	return nil
}
