package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/betbot/typedsig/internal/render"
	"github.com/betbot/typedsig/pkg/config"
	"github.com/betbot/typedsig/pkg/eip712"
)

var errNoSigner = errors.New("signing key is not configured")

type verifyRequest struct {
	TypedData json.RawMessage `json:"typedData"`
	Signature string          `json:"signature"`
	Address   string          `json:"address,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"requestId"`
}

func (s *Server) handleHealthz(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if addr, ok := s.SignerAddress(); ok {
		resp["signer"] = addr.Hex()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHash(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.fail(c, errors.Wrap(err, "read body"))
		return
	}
	req, err := parseTypedData(body)
	if err != nil {
		s.fail(c, err)
		return
	}
	d, err := eip712.Hash(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) handleVerify(c *gin.Context) {
	var in verifyRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		s.fail(c, errors.Wrap(err, "decode body"))
		return
	}
	req, err := parseTypedData(in.TypedData)
	if err != nil {
		s.fail(c, err)
		return
	}
	sig, err := eip712.ParseSignature(strings.TrimSpace(in.Signature))
	if err != nil {
		s.fail(c, err)
		return
	}

	var expected *common.Address
	if strings.TrimSpace(in.Address) != "" {
		addr, err := eip712.ParseAddress(in.Address)
		if err != nil {
			s.fail(c, &eip712.Error{Kind: eip712.ErrSchemaMismatch, Path: "address", Cause: err})
			return
		}
		expected = &addr
	}

	d, err := eip712.Hash(req)
	if err != nil {
		s.fail(c, err)
		return
	}
	recovered, err := eip712.RecoverAddress(d.Hash, sig)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := render.VerifyOutput{Digest: d.Hash, Recovered: recovered, Expected: expected}
	out.Valid = expected == nil || *expected == recovered
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleSign(c *gin.Context) {
	if s.cfg.Signer == nil {
		s.fail(c, errNoSigner)
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.fail(c, errors.Wrap(err, "read body"))
		return
	}
	req, err := parseTypedData(body)
	if err != nil {
		s.fail(c, err)
		return
	}
	res, err := eip712.Sign(req, s.cfg.Signer)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, render.NewSignOutput(res))
}

// parseTypedData 解析 eth_signTypedData_v4 格式的 JSON
func parseTypedData(raw []byte) (*eip712.Request, error) {
	if len(raw) == 0 {
		return nil, errors.New("typed data is empty")
	}
	doc, err := config.Parse(raw, "json")
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, &eip712.Error{Kind: eip712.ErrSchemaMismatch, Cause: err}
	}
	return doc.ToRequest()
}

// statusFor 错误类别 -> HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, errNoSigner):
		return http.StatusServiceUnavailable
	case errors.Is(err, eip712.ErrInvalidKey):
		return http.StatusInternalServerError
	default:
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	resp := errorResponse{Error: err.Error(), RequestID: c.GetString(ctxRequestID)}
	if kind := eip712.KindOf(err); kind != nil {
		resp.Kind = kind.Error()
	}
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		// 不把私钥相关的细节回显给调用方
		resp.Error = "signing key error"
	}
	c.AbortWithStatusJSON(status, resp)
}
