package billtext

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// Portal paths and element locators.
const (
	loginPath      = "/ce/Corporativo.aspx"
	homeFragment   = "DefaultGa.aspx"
	statementsPath = "/agencia/SegundaViaGa.aspx"

	selUserName    = "#WEBDOOR_headercorporativo_UserName"
	selPassword    = "#WEBDOOR_headercorporativo_Password"
	selLoginButton = "#WEBDOOR_headercorporativo_Ok"

	selAccountTable = "#CONTENT_gdEscolherClienteDoAgrupamento"

	statementsLinkText = "2ª Via"
	selHistoryTable    = "#CONTENT_gdHistoricoDeFaturamento"
	xpathReferenceDate = "//table[@id='CONTENT_gdHistoricoDeFaturamento']/tbody/tr[2]/td[1]"
	selLatestCheckbox  = "#CONTENT_gdHistoricoDeFaturamento_chkSegundaVia_0"
	selEmitButton      = "#CONTENT_btnEmitirSegundaVia"
)

// jsListAccounts returns the trimmed first-cell text of every data row of
// the account picker.
const jsListAccounts = `(function() {
	const table = document.getElementById('CONTENT_gdEscolherClienteDoAgrupamento');
	if (!table) return [];
	return Array.from(table.querySelectorAll('tr')).slice(1)
		.map(row => row.querySelector('td'))
		.filter(cell => cell)
		.map(cell => cell.textContent.trim())
		.filter(text => text.length > 0);
})()`

// jsSelectAccount ticks the checkbox of the row whose first cell equals
// the given account and reports whether such a row exists.
const jsSelectAccount = `(function(id) {
	const table = document.getElementById('CONTENT_gdEscolherClienteDoAgrupamento');
	if (!table) return false;
	for (const row of Array.from(table.querySelectorAll('tr')).slice(1)) {
		const cell = row.querySelector('td');
		if (!cell || cell.textContent.trim() !== id) continue;
		const box = row.querySelector('input[type=checkbox]');
		if (!box) continue;
		if (!box.checked) box.click();
		return true;
	}
	return false;
})(%s)`

// jsFollowLink scrolls to the first link containing the given text and
// clicks it.
const jsFollowLink = `(function(text) {
	const link = Array.from(document.querySelectorAll('a')).find(a => a.textContent.includes(text));
	if (!link) return false;
	link.scrollIntoView(true);
	link.click();
	return true;
})(%s)`

func jsCall(format, arg string) string {
	quoted, _ := json.Marshal(arg)
	return fmt.Sprintf(format, quoted)
}

// Login implements [Session].
func (s *chromeSession) Login(ctx context.Context, email, password string) error {
	s.log.Info().Msg("logging in")
	if err := s.run(ctx, s.cfg.stepTimeout,
		chromedp.Navigate(s.url(loginPath)),
	); err != nil {
		return fmt.Errorf("%w: opening login page: %v", ErrNavigation, err)
	}

	if err := s.run(ctx, s.cfg.stepTimeout,
		chromedp.WaitVisible(selUserName, chromedp.ByQuery),
		chromedp.Clear(selUserName, chromedp.ByQuery),
		chromedp.SendKeys(selUserName, email, chromedp.ByQuery),
		chromedp.Clear(selPassword, chromedp.ByQuery),
		chromedp.SendKeys(selPassword, password, chromedp.ByQuery),
		chromedp.Click(selLoginButton, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("%w: filling login form: %v", ErrLogin, err)
	}

	if err := s.run(ctx, s.cfg.stepTimeout, waitLocationContains(homeFragment)); err != nil {
		return fmt.Errorf("%w: invalid credentials or timeout: %v", ErrLogin, err)
	}
	s.log.Info().Msg("login succeeded")
	return nil
}

// waitLocationContains polls the current URL until it contains fragment.
func waitLocationContains(fragment string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for {
			var loc string
			if err := chromedp.Location(&loc).Do(ctx); err != nil {
				return err
			}
			if strings.Contains(loc, fragment) {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(250 * time.Millisecond):
			}
		}
	})
}

// Accounts implements [Session].
func (s *chromeSession) Accounts(ctx context.Context) ([]string, bool, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, s.cfg.stepTimeout,
		chromedp.Nodes(selAccountTable, &nodes, chromedp.ByQuery, chromedp.AtLeast(0)),
	); err != nil {
		return nil, false, fmt.Errorf("%w: looking for account picker: %v", ErrNavigation, err)
	}
	if len(nodes) == 0 {
		return nil, false, nil
	}

	var accounts []string
	if err := s.run(ctx, s.cfg.accountTimeout,
		chromedp.WaitReady(selAccountTable, chromedp.ByQuery),
		chromedp.Evaluate(jsListAccounts, &accounts),
	); err != nil {
		s.log.Error().Err(err).Msg("listing accounts")
		return nil, true, nil
	}
	return accounts, true, nil
}

// SelectAccount implements [Session].
func (s *chromeSession) SelectAccount(ctx context.Context, account string) error {
	s.log.Info().Str("account", account).Msg("selecting account")

	var found bool
	if err := s.run(ctx, s.cfg.accountTimeout,
		chromedp.WaitReady(selAccountTable, chromedp.ByQuery),
		chromedp.Evaluate(jsCall(jsSelectAccount, account), &found),
	); err != nil {
		return fmt.Errorf("%w: selecting account: %v", ErrNavigation, err)
	}
	if !found {
		return ErrAccountNotFound
	}

	// The picker posts back after the checkbox changes.
	if err := s.run(ctx, s.cfg.linkSettle+time.Second, chromedp.Sleep(s.cfg.linkSettle)); err != nil {
		return fmt.Errorf("%w: %v", ErrNavigation, err)
	}
	return nil
}

// OpenStatements implements [Session].
func (s *chromeSession) OpenStatements(ctx context.Context) error {
	s.log.Info().Msg("opening statements page")

	var clicked bool
	if err := s.run(ctx, s.cfg.stepTimeout,
		chromedp.WaitReady(fmt.Sprintf("//a[contains(., '%s')]", statementsLinkText), chromedp.BySearch),
		chromedp.Evaluate(jsCall(jsFollowLink, statementsLinkText), &clicked),
	); err != nil {
		return fmt.Errorf("%w: following %q link: %v", ErrNavigation, statementsLinkText, err)
	}
	if !clicked {
		return fmt.Errorf("%w: link %q not found", ErrNavigation, statementsLinkText)
	}

	if err := s.run(ctx, s.cfg.stepTimeout+s.cfg.linkSettle,
		chromedp.Sleep(s.cfg.linkSettle),
		chromedp.Navigate(s.url(statementsPath)),
		chromedp.WaitReady(selHistoryTable, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("%w: loading statements page: %v", ErrNavigation, err)
	}
	return nil
}

// ReferenceDate implements [Session].
func (s *chromeSession) ReferenceDate(ctx context.Context) (string, error) {
	var date string
	if err := s.run(ctx, s.cfg.stepTimeout,
		chromedp.Text(xpathReferenceDate, &date, chromedp.BySearch),
	); err != nil {
		return "", fmt.Errorf("%w: reading reference date: %v", ErrNavigation, err)
	}
	return strings.TrimSpace(date), nil
}

// RequestStatement implements [Session].
func (s *chromeSession) RequestStatement(ctx context.Context) error {
	s.log.Info().Msg("requesting statement")
	if err := s.run(ctx, s.cfg.stepTimeout,
		chromedp.Click(selLatestCheckbox, chromedp.ByQuery, chromedp.NodeVisible),
		chromedp.Click(selEmitButton, chromedp.ByQuery, chromedp.NodeVisible),
	); err != nil {
		return fmt.Errorf("%w: requesting statement: %v", ErrNavigation, err)
	}
	return nil
}
