// Package notify posts discovery announcements to a GroupMe bot.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"callwatch_roster/internal/roster"
)

// Notifier posts messages to a GroupMe bot. A zero BotID disables it.
type Notifier struct {
	BotID string
	URL   string
	HTTP  *http.Client
}

func New(botID, url string) *Notifier {
	return &Notifier{BotID: botID, URL: url, HTTP: http.DefaultClient}
}

// AnnounceDiscoveries sends a summary of newly discovered users. Returns nil
// without sending when no bot is configured or nothing was discovered.
func (n *Notifier) AnnounceDiscoveries(recs []roster.Record) error {
	if n.BotID == "" || len(recs) == 0 {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d new users discovered:", len(recs))
	for _, rec := range recs {
		fmt.Fprintf(&b, "\n%d %s %s (%s)", rec.RadioID, rec.Callsign, rec.FirstName, rec.State)
	}
	return n.send(b.String())
}

func (n *Notifier) send(text string) error {
	payload := map[string]string{"text": text, "bot_id": n.BotID}
	buf, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, n.URL, bytes.NewBuffer(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("groupme status %d", resp.StatusCode)
	}
	return nil
}
