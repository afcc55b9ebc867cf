// Package scraper imports a class timetable from the academic portal.
package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"

	"github.com/julianstephens/mydesk/internal/constants"
	"github.com/julianstephens/mydesk/internal/logger"
	"github.com/julianstephens/mydesk/internal/models"
)

var (
	// ErrLoginFailed is returned when the portal sends us back to its login page.
	ErrLoginFailed = errors.New("portal login failed")
	// ErrUnexpectedPage is returned when a page lacks the expected form or link.
	ErrUnexpectedPage = errors.New("unexpected portal page")
)

const (
	loginPath    = "/OpDotNet/Noyau/Login.aspx?"
	agendaBridge = "/OpDotnet/commun/Login/aspxtoasp.aspx?url=/Eplug/Agenda/Agenda.asp?IdApplication=190&TypeAcces=Utilisateur&IdLien=649"

	fieldLogin    = "UcAuthentification1$UcLogin1$txtLogin"
	fieldPassword = "UcAuthentification1$UcLogin1$txtPassword"
	fieldSubmit   = "UcAuthentification1$UcLogin1$btnEntrer"

	tableView  = "Vis-Tab.xsl"
	userAgent  = "Mozilla/5.0"
	maxAttempt = 3
)

var digits = regexp.MustCompile(`\d+`)

// Options configures a Scraper.
type Options struct {
	BaseURL     string
	Credentials Credentials
	Months      int
	Timeout     time.Duration
	// RetryDelay is the pause between attempts of a failed request.
	RetryDelay time.Duration
}

// Scraper walks the portal agenda month by month.
type Scraper struct {
	base   *url.URL
	client *http.Client
	creds  Credentials
	months int
	delay  time.Duration

	now   func() time.Time
	newID func() string
}

// Result holds the scraped events in portal order.
type Result struct {
	Events   []models.Event
	Warnings []string
}

func New(opts Options) (*Scraper, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid portal base URL %q", opts.BaseURL)
	}
	if opts.Credentials.User == "" || opts.Credentials.Password == "" {
		return nil, ErrNoCredentials
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if opts.Months <= 0 {
		opts.Months = constants.DefaultScrapeMonths
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	return &Scraper{
		base:   base,
		client: &http.Client{Jar: jar, Timeout: opts.Timeout},
		creds:  opts.Credentials,
		months: opts.Months,
		delay:  opts.RetryDelay,
		now:    models.Now,
		newID:  uuid.NewString,
	}, nil
}

// page is a fetched HTML body and the URL it finally came from.
type page struct {
	body string
	url  *url.URL
}

func (s *Scraper) resolve(ref string) string {
	u, err := s.base.Parse(ref)
	if err != nil {
		return s.base.String() + ref
	}
	return u.String()
}

// fetch performs one request, retrying transport failures and server
// errors. Client errors are not retried.
func (s *Scraper) fetch(ctx context.Context, method, target string, form url.Values) (page, error) {
	return retry.DoWithData(func() (page, error) {
		var body io.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}
		req, err := http.NewRequestWithContext(ctx, method, target, body)
		if err != nil {
			return page{}, retry.Unrecoverable(err)
		}
		req.Header.Set("User-Agent", userAgent)
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return page{}, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return page{}, err
		}
		if resp.StatusCode >= 500 {
			return page{}, fmt.Errorf("%s %s: %s", method, target, resp.Status)
		}
		if resp.StatusCode >= 400 {
			return page{}, retry.Unrecoverable(fmt.Errorf("%s %s: %s", method, target, resp.Status))
		}
		return page{body: string(data), url: resp.Request.URL}, nil
	},
		retry.Context(ctx),
		retry.Attempts(maxAttempt),
		retry.Delay(s.delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("portal request failed, retrying", "attempt", n+1, "url", target, "error", err)
		}),
	)
}

func (s *Scraper) login(ctx context.Context) error {
	p, err := s.fetch(ctx, http.MethodGet, s.resolve(loginPath), nil)
	if err != nil {
		return fmt.Errorf("failed to load login page: %w", err)
	}
	doc, err := parseHTML(p.body)
	if err != nil {
		return fmt.Errorf("failed to parse login page: %w", err)
	}

	form := url.Values{}
	for _, name := range []string{"__VIEWSTATE", "__EVENTVALIDATION", "__VIEWSTATEGENERATOR"} {
		v := inputValue(doc, name)
		if v == "" {
			return fmt.Errorf("%w: login page has no %s", ErrUnexpectedPage, name)
		}
		form.Set(name, v)
	}
	form.Set(fieldLogin, s.creds.User)
	form.Set(fieldPassword, s.creds.Password)
	form.Set(fieldSubmit, "Connexion")

	p, err = s.fetch(ctx, http.MethodPost, s.resolve(loginPath), form)
	if err != nil {
		return fmt.Errorf("failed to submit login: %w", err)
	}
	if strings.Contains(p.url.String(), "Login") {
		return ErrLoginFailed
	}
	logger.Info("logged in to portal", "user", s.creds.User)
	return nil
}

// agendaURL follows the bridge page to the tokenised agenda address.
func (s *Scraper) agendaURL(ctx context.Context) (string, error) {
	p, err := s.fetch(ctx, http.MethodGet, s.resolve(agendaBridge), nil)
	if err != nil {
		return "", fmt.Errorf("failed to open agenda: %w", err)
	}
	return p.url.String(), nil
}

func (s *Scraper) tableView(ctx context.Context, agenda string, month time.Time) (string, error) {
	// Keeps the agenda session alive.
	if _, err := s.fetch(ctx, http.MethodGet, agenda, nil); err != nil {
		return "", err
	}
	form := url.Values{
		"TypVis":   {tableView},
		"date":     {month.Format(constants.DateFormat)},
		"BValider": {"OK"},
	}
	p, err := s.fetch(ctx, http.MethodPost, agenda, form)
	if err != nil {
		return "", fmt.Errorf("failed to load table view: %w", err)
	}
	return p.body, nil
}

// followForm submits the first form of an auto-submit bridge page.
func (s *Scraper) followForm(ctx context.Context, body string) (string, error) {
	doc, err := parseHTML(body)
	if err != nil {
		return "", err
	}
	form := findFirst(doc, tag("form"))
	if form == nil {
		return "", fmt.Errorf("%w: no bridge form", ErrUnexpectedPage)
	}
	action, _ := attr(form, "action")

	values := url.Values{}
	for _, in := range findAll(form, tag("input")) {
		name, ok := attr(in, "name")
		if !ok || name == "" {
			continue
		}
		v, _ := attr(in, "value")
		values.Set(name, v)
	}

	p, err := s.fetch(ctx, http.MethodPost, s.resolve(action), values)
	if err != nil {
		return "", fmt.Errorf("failed to follow bridge form: %w", err)
	}
	return p.body, nil
}

// nextMonth clicks the right arrow of the month navigation.
func (s *Scraper) nextMonth(ctx context.Context, doc *html.Node, agenda string) (string, error) {
	links := findAll(doc, func(n *html.Node) bool {
		onclick, _ := attr(n, "onclick")
		return n.Data == "a" && strings.Contains(onclick, "NavDat(")
	})
	if len(links) == 0 {
		return "", fmt.Errorf("%w: no month navigation", ErrUnexpectedPage)
	}

	next := links[len(links)-1]
	for _, a := range links {
		img := findFirst(a, tag("img"))
		if img == nil {
			continue
		}
		if src, _ := attr(img, "src"); strings.Contains(src, "FlecheDroite") {
			next = a
			break
		}
	}

	onclick, _ := attr(next, "onclick")
	num := strings.Join(digits.FindAllString(onclick, -1), "")
	if num == "" {
		return "", fmt.Errorf("%w: navigation link has no date number", ErrUnexpectedPage)
	}

	form := url.Values{
		"NumDat":   {num},
		"TypVis":   {tableView},
		"BValider": {"OK"},
	}
	p, err := s.fetch(ctx, http.MethodPost, agenda, form)
	if err != nil {
		return "", fmt.Errorf("failed to load next month: %w", err)
	}
	if strings.Contains(p.body, "aspxtoasp.asp") {
		return s.followForm(ctx, p.body)
	}
	return p.body, nil
}

// Scrape logs in and collects the events of the current month and the
// following ones.
func (s *Scraper) Scrape(ctx context.Context) (Result, error) {
	if err := s.login(ctx); err != nil {
		return Result{}, err
	}
	agenda, err := s.agendaURL(ctx)
	if err != nil {
		return Result{}, err
	}

	now := s.now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	body, err := s.tableView(ctx, agenda, first)
	if err != nil {
		return Result{}, err
	}
	body, err = s.followForm(ctx, body)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for i := 0; i < s.months; i++ {
		if i > 0 {
			body, err = s.nextMonth(ctx, doc(body), agenda)
			if err != nil {
				return res, err
			}
		}
		events := ParseTable(doc(body), s.newID)
		logger.Info("parsed agenda month", "month", first.AddDate(0, i, 0).Format("2006-01"), "events", len(events))
		res.Events = append(res.Events, events...)
	}

	if s.months > 1 {
		second := first.AddDate(0, 1, 0)
		if !hasMonth(res.Events, second) {
			w := fmt.Sprintf("no events found for %s, loading the next month probably failed", second.Format("2006-01"))
			logger.Warn(w)
			res.Warnings = append(res.Warnings, w)
		}
	}
	return res, nil
}

// doc parses body, falling back to an empty document.
func doc(body string) *html.Node {
	n, err := parseHTML(body)
	if err != nil {
		return &html.Node{Type: html.DocumentNode}
	}
	return n
}

func hasMonth(events []models.Event, month time.Time) bool {
	for _, ev := range events {
		if ev.Start.Year() == month.Year() && ev.Start.Month() == month.Month() {
			return true
		}
	}
	return false
}

type importCalendar struct {
	Events []models.Event `json:"events"`
}

type importDocument struct {
	StoragePath string         `json:"storagePath"`
	Calendar    importCalendar `json:"calendar"`
}

// MarshalImport renders events as an import document.
func MarshalImport(events []models.Event, storagePath string) ([]byte, error) {
	if events == nil {
		events = []models.Event{}
	}
	return json.MarshalIndent(importDocument{
		StoragePath: storagePath,
		Calendar:    importCalendar{Events: events},
	}, "", "  ")
}
