package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	billtext "github.com/porticus-lab/go-bill-text"
)

type errorBody struct {
	Detail            string   `json:"detail"`
	AvailableAccounts []string `json:"available_accounts,omitempty"`
}

func writeError(w http.ResponseWriter, status int, body errorBody) {
	writeJSON(w, status, body)
}

// translate maps a retrieval error to an HTTP status and response body.
func translate(err error) (int, errorBody) {
	var anf *billtext.AccountNotFoundError
	if errors.As(err, &anf) {
		list := "[" + strings.Join(anf.Available, ", ") + "]"
		detail := fmt.Sprintf("Cliente %s não encontrado. Disponíveis: %s", anf.Requested, list)
		if anf.Requested == "" {
			detail = "Informe o numero_cliente. Disponíveis: " + list
		}
		return http.StatusNotFound, errorBody{Detail: detail, AvailableAccounts: anf.Available}
	}

	var se *billtext.StageError
	if !errors.As(err, &se) {
		// Only the wait for a browser slot fails outside a stage.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return http.StatusServiceUnavailable, errorBody{Detail: "Nenhuma sessão de navegador disponível no momento"}
		}
		return http.StatusInternalServerError, errorBody{Detail: "Erro interno do servidor: " + err.Error()}
	}

	switch {
	case errors.Is(err, billtext.ErrLogin):
		return http.StatusUnauthorized, errorBody{Detail: "Falha no login - credenciais inválidas ou timeout"}
	case errors.Is(err, billtext.ErrDownloadTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorBody{Detail: "Timeout na operação: " + se.Err.Error()}
	}

	var prefix string
	switch se.Stage {
	case billtext.StageLogin:
		return http.StatusUnauthorized, errorBody{Detail: "Erro no login: " + se.Err.Error()}
	case billtext.StageDirectory:
		prefix = "Erro ao criar diretório de download"
	case billtext.StageBrowser:
		prefix = "Erro ao inicializar navegador"
	case billtext.StageNavigation, billtext.StageAccount:
		prefix = "Erro na navegação para 2ª Via"
	case billtext.StageEmission:
		prefix = "Erro ao solicitar emissão do PDF"
	case billtext.StageExtraction:
		prefix = "Erro ao extrair texto do PDF"
	default:
		prefix = "Erro interno do servidor"
	}
	return http.StatusInternalServerError, errorBody{Detail: prefix + ": " + se.Err.Error()}
}
