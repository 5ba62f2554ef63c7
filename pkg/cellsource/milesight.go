package cellsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nectard/nectard/pkg"
	"github.com/nectard/nectard/pkg/logx"
)

// signalRe extracts the dBm reading from a Milesight signal string such
// as "31asu (-51dBm)".
var signalRe = regexp.MustCompile(`\((-?\d+)dBm\)`)

// Milesight polls a Milesight router's /cgi endpoint (§6): a login POST
// establishes a session cookie, which is replayed on a follow-up query
// POST for the "yruo_celluar" object. Field values are pulled out of the
// JSON reply by fixed path, mirroring the hand-rolled JSON-pointer walk
// the router's own web UI performs against the same payload.
type Milesight struct {
	baseURL  string
	username string
	// passwordHash is the bcrypt digest of password, used only by
	// CredentialUnchanged; the plaintext stays in password because every
	// login POST sends it.
	passwordHash []byte
	password     string
	client       *http.Client
	log          *logx.Logger
}

// NewMilesight builds a Milesight backend. The password is hashed with
// bcrypt immediately; the hash is never used to authenticate (Milesight
// itself only accepts the plaintext secret) and serves only
// CredentialUnchanged. The plaintext password is kept in the struct as
// well, for the login POST.
func NewMilesight(baseURL, username, password string, log *logx.Logger) (*Milesight, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("cellsource: hashing milesight credential: %w", err)
	}
	return &Milesight{
		baseURL:      strings.TrimRight(baseURL, "/"),
		username:     username,
		password:     password,
		passwordHash: hash,
		client:       &http.Client{Timeout: 5 * time.Second},
		log:          log,
	}, nil
}

func (m *Milesight) Name() string { return "milesight" }

// CredentialUnchanged reports whether candidate hashes to the same
// bcrypt digest already cached for this backend, letting a config
// reload skip re-logging-in when nothing actually changed.
func (m *Milesight) CredentialUnchanged(candidate string) bool {
	return bcrypt.CompareHashAndPassword(m.passwordHash, []byte(candidate)) == nil
}

func (m *Milesight) Fetch(ctx context.Context) (pkg.CellInfo, error) {
	cookie, err := m.login(ctx)
	if err != nil {
		return pkg.CellInfo{}, fmt.Errorf("cellsource: milesight login: %w", err)
	}

	body, err := m.query(ctx, cookie)
	if err != nil {
		return pkg.CellInfo{}, fmt.Errorf("cellsource: milesight query: %w", err)
	}

	return parseMilesightReply(body)
}

func (m *Milesight) login(ctx context.Context) (string, error) {
	payload, _ := json.Marshal(map[string]interface{}{
		"base": "login",
		"set": map[string]string{
			"username": m.username,
			"password": m.password,
		},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/cgi", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	for _, c := range resp.Cookies() {
		if c.Name != "" {
			return c.Name + "=" + c.Value, nil
		}
	}
	return "", fmt.Errorf("no session cookie in login response")
}

func (m *Milesight) query(ctx context.Context, cookie string) ([]byte, error) {
	payload, _ := json.Marshal(map[string]interface{}{"base": "yruo_celluar"})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/cgi", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", cookie)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// milesightReply mirrors the subset of the /cgi JSON body this backend
// reads: result[0].get[0].value.{modem,more}.
type milesightReply struct {
	Result []struct {
		Get []struct {
			Value struct {
				Modem struct {
					CellID   string `json:"cellid"`
					NetType  string `json:"net_type"`
					Signal   string `json:"signal"`
				} `json:"modem"`
				More struct {
					Earfcn string `json:"earfcn"`
					Nrarfcn string `json:"nrarfcn"`
					Rsrp   string `json:"rsrp"`
					Rsrq   string `json:"rsrq"`
				} `json:"more"`
			} `json:"value"`
		} `json:"get"`
	} `json:"result"`
}

func parseMilesightReply(body []byte) (pkg.CellInfo, error) {
	var reply milesightReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return pkg.CellInfo{}, fmt.Errorf("cellsource: decoding milesight reply: %w", err)
	}
	if len(reply.Result) == 0 || len(reply.Result[0].Get) == 0 {
		return pkg.CellInfo{}, fmt.Errorf("cellsource: milesight reply has no result/get entry")
	}
	v := reply.Result[0].Get[0].Value

	cellID, err := strconv.ParseUint(v.Modem.CellID, 16, 64)
	if err != nil {
		return pkg.CellInfo{}, fmt.Errorf("cellsource: parsing milesight cellid %q: %w", v.Modem.CellID, err)
	}

	var cellType pkg.CellType
	var arfcn uint64
	switch strings.ToUpper(v.Modem.NetType) {
	case "LTE", "4G", "4G LTE":
		cellType = pkg.CellTypeLTE
		arfcn, err = strconv.ParseUint(v.More.Earfcn, 10, 64)
	case "NR", "5G", "5G NR":
		cellType = pkg.CellTypeNR
		arfcn, err = strconv.ParseUint(v.More.Nrarfcn, 10, 64)
	default:
		cellType = pkg.CellTypeNR
		arfcn, err = strconv.ParseUint(v.More.Nrarfcn, 10, 64)
	}
	if err != nil {
		return pkg.CellInfo{}, fmt.Errorf("cellsource: parsing milesight arfcn: %w", err)
	}

	var freq uint64
	if cellType == pkg.CellTypeLTE {
		freq, err = LTEFrequencyHz(arfcn)
	} else {
		freq, err = NRFrequencyHz(arfcn)
	}
	if err != nil {
		return pkg.CellInfo{}, err
	}

	rsrp, err := strconv.ParseFloat(strings.TrimSuffix(v.More.Rsrp, "dBm"), 64)
	if err != nil {
		return pkg.CellInfo{}, fmt.Errorf("cellsource: parsing milesight rsrp %q: %w", v.More.Rsrp, err)
	}
	rsrq, err := strconv.ParseFloat(strings.TrimSuffix(v.More.Rsrq, "dB"), 64)
	if err != nil {
		return pkg.CellInfo{}, fmt.Errorf("cellsource: parsing milesight rsrq %q: %w", v.More.Rsrq, err)
	}

	rssi := rsrp
	if m := signalRe.FindStringSubmatch(v.Modem.Signal); len(m) == 2 {
		if val, err := strconv.ParseFloat(m[1], 64); err == nil {
			rssi = val
		}
	}

	return pkg.CellInfo{Cells: []pkg.SingleCell{{
		CellID:    cellID,
		CellType:  cellType,
		NofPRB:    PRBFromCellID(cellID),
		Frequency: freq,
		RSSI:      rssi,
		RSRP:      rsrp,
		RSRQ:      rsrq,
	}}}, nil
}
