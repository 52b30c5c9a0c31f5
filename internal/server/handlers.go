package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/rs/zerolog/hlog"

	billtext "github.com/porticus-lab/go-bill-text"
)

// successMessage is returned with every extracted statement.
const successMessage = "Texto completo do PDF extraído com sucesso."

type extractRequest struct {
	Email         string `json:"email"`
	Senha         string `json:"senha"`
	NumeroCliente string `json:"numero_cliente"`
}

func (req *extractRequest) validate() error {
	// Display names ("Name <a@b.c>") are not accepted.
	addr, err := mail.ParseAddress(req.Email)
	if err != nil || addr.Address != req.Email {
		return errors.New("email inválido")
	}
	if req.Senha == "" {
		return errors.New("senha é obrigatória")
	}
	return nil
}

type extractResponse struct {
	DataReferencia           *string `json:"data_referencia"`
	TextoDoPDFCompleto       string  `json:"texto_do_pdf_completo"`
	NumeroClienteSelecionado *string `json:"numero_cliente_selecionado"`
	Message                  string  `json:"message"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	var req extractRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, errorBody{Detail: "corpo da requisição inválido: " + err.Error()})
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.NumeroCliente = strings.TrimSpace(req.NumeroCliente)
	if err := req.validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, errorBody{Detail: err.Error()})
		return
	}

	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	log.Info().Str("account", req.NumeroCliente).Msg("statement requested")
	st, err := s.fetcher.Fetch(ctx, billtext.Credentials{
		Email:    req.Email,
		Password: req.Senha,
		Account:  req.NumeroCliente,
	})
	if err != nil {
		status, body := translate(err)
		ev := log.Warn()
		if status >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Err(err).Int("status", status).Msg("statement retrieval failed")
		writeError(w, status, body)
		return
	}

	resp := extractResponse{
		DataReferencia:     st.ReferenceDate,
		TextoDoPDFCompleto: st.Text.Content,
		Message:            successMessage,
	}
	if st.Account != "" {
		account := st.Account
		resp.NumeroClienteSelecionado = &account
	}
	log.Info().Int("chars", st.Text.Len()).Msg("statement returned")
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
