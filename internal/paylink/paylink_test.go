package paylink

import (
	"strings"
	"testing"

	"github.com/cheq-app/cheq-backend/internal/models"
)

func TestLinks(t *testing.T) {
	handles := models.PaymentHandles{
		Venmo:   "@host-venmo",
		CashApp: "$hostcash",
		Zelle:   "host@example.com",
	}

	links := Links(handles, 1280, "Dinner split")
	if len(links) != 3 {
		t.Fatalf("got %d links, want 3", len(links))
	}

	venmo := links[0]
	if venmo.Rail != "venmo" || venmo.Handle != "host-venmo" {
		t.Errorf("venmo link = %+v", venmo)
	}
	if !strings.Contains(venmo.URL, "venmo.com/host-venmo") {
		t.Errorf("venmo URL = %q", venmo.URL)
	}
	if !strings.Contains(venmo.URL, "amount=12.80") {
		t.Errorf("venmo URL missing amount: %q", venmo.URL)
	}
	if !strings.Contains(venmo.URL, "note=Dinner+split") {
		t.Errorf("venmo URL missing note: %q", venmo.URL)
	}

	cash := links[1]
	if cash.Rail != "cashapp" || cash.URL != "https://cash.app/$hostcash/12.80" {
		t.Errorf("cashapp link = %+v", cash)
	}

	zelle := links[2]
	if zelle.Rail != "zelle" || zelle.Handle != "host@example.com" || zelle.URL != "" {
		t.Errorf("zelle link = %+v", zelle)
	}
}

func TestLinksSkipsEmptyHandles(t *testing.T) {
	links := Links(models.PaymentHandles{CashApp: "onlycash"}, 500, "")
	if len(links) != 1 || links[0].Rail != "cashapp" {
		t.Errorf("links = %+v, want cashapp only", links)
	}

	if links := Links(models.PaymentHandles{}, 500, ""); len(links) != 0 {
		t.Errorf("links = %+v, want none", links)
	}
}
