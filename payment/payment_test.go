package payment

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"

	"ppn/common"
	"ppn/types"
)

func newTestKeypair(t *testing.T) (string, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	return common.EncodeBytesToBase58(pub), priv
}

func newSignedRequest(t *testing.T) (*Request, ed25519.PrivateKey) {
	t.Helper()
	sender, priv := newTestKeypair(t)
	receiver, _ := newTestKeypair(t)
	req := &Request{
		Sender:   sender,
		Receiver: receiver,
		Amount:   2_000_000,
		Memo:     "Test payment",
		Sequence: 7,
	}
	req.Sign(priv)
	return req, priv
}

func TestSignAndVerify(t *testing.T) {
	req, _ := newSignedRequest(t)
	if !req.Verify() {
		t.Error("Expected signed request to verify")
	}
}

func TestVerifyRejectsMissingSignature(t *testing.T) {
	req, _ := newSignedRequest(t)
	req.Signature = ""
	if req.Verify() {
		t.Error("Expected unsigned request to fail verification")
	}
}

func TestVerifyRejectsTamperedAmount(t *testing.T) {
	req, _ := newSignedRequest(t)
	req.Amount = req.Amount + 1
	if req.Verify() {
		t.Error("Expected tampered amount to fail verification")
	}
}

func TestVerifyRejectsTamperedMemo(t *testing.T) {
	req, _ := newSignedRequest(t)
	req.Memo = "Altered memo"
	if req.Verify() {
		t.Error("Expected tampered memo to fail verification")
	}
}

func TestVerifyRejectsTamperedReceiver(t *testing.T) {
	req, _ := newSignedRequest(t)
	other, _ := newTestKeypair(t)
	req.Receiver = other
	if req.Verify() {
		t.Error("Expected tampered receiver to fail verification")
	}
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	req, _ := newSignedRequest(t)
	_, otherPriv := newTestKeypair(t)
	req.Sign(otherPriv)
	if req.Verify() {
		t.Error("Expected signature from a foreign key to fail verification")
	}
}

func TestVerifyRejectsOversizedSignature(t *testing.T) {
	req, _ := newSignedRequest(t)
	req.Signature = strings.Repeat("1", maxSignatureBase58Len+1)
	if req.Verify() {
		t.Error("Expected oversized signature to fail verification")
	}
}

func TestVerifyRejectsMalformedSender(t *testing.T) {
	req, priv := newSignedRequest(t)
	req.Sender = "not-base58-0OIl"
	req.Sign(priv)
	if req.Verify() {
		t.Error("Expected malformed sender address to fail verification")
	}
}

func TestSerializeCanonicalForm(t *testing.T) {
	req := &Request{
		Sender:    "alice",
		Receiver:  "bob",
		Amount:    42,
		Memo:      "hello",
		Sequence:  3,
		Signature: "should-not-appear",
	}
	got := string(req.Serialize())
	want := "alice|bob|42|3|hello"
	if got != want {
		t.Errorf("Expected preimage %q, got %q", want, got)
	}
}

func TestHashStableAcrossSigning(t *testing.T) {
	sender, priv := newTestKeypair(t)
	receiver, _ := newTestKeypair(t)
	req := &Request{Sender: sender, Receiver: receiver, Amount: 10, Sequence: 1}
	before := req.Hash()
	req.Sign(priv)
	if after := req.Hash(); after != before {
		t.Errorf("Expected hash to be stable across signing, got %s then %s", before, after)
	}
}

func TestHashDistinguishesSequences(t *testing.T) {
	sender, _ := newTestKeypair(t)
	receiver, _ := newTestKeypair(t)
	a := &Request{Sender: sender, Receiver: receiver, Amount: 10, Sequence: 1}
	b := &Request{Sender: sender, Receiver: receiver, Amount: 10, Sequence: 2}
	if a.Hash() == b.Hash() {
		t.Error("Expected requests with different sequences to have different hashes")
	}
}

func TestTrackerPendingToCommitted(t *testing.T) {
	tracker := &PaymentTracker{}
	req, _ := newSignedRequest(t)
	hash := req.Hash()

	tracker.TrackPending(req)
	meta, ok := tracker.Status(hash)
	if !ok {
		t.Fatal("Expected tracked payment to be found")
	}
	if meta.Status != types.PaymentStatusPending {
		t.Errorf("Expected status %d, got %d", types.PaymentStatusPending, meta.Status)
	}
	if !tracker.IsPending(hash) {
		t.Error("Expected payment to be pending")
	}

	tracker.MarkCommitted(hash, req.Sequence, "record-address")
	meta, ok = tracker.Status(hash)
	if !ok {
		t.Fatal("Expected committed payment to be found")
	}
	if meta.Status != types.PaymentStatusCommitted {
		t.Errorf("Expected status %d, got %d", types.PaymentStatusCommitted, meta.Status)
	}
	if meta.RecordAddress != "record-address" {
		t.Errorf("Expected record address to be kept, got %q", meta.RecordAddress)
	}
	if tracker.IsPending(hash) {
		t.Error("Expected committed payment to no longer be pending")
	}
}

func TestTrackerMarkFailed(t *testing.T) {
	tracker := &PaymentTracker{}
	req, _ := newSignedRequest(t)
	hash := req.Hash()

	tracker.TrackPending(req)
	tracker.MarkFailed(hash, req.Sequence, "insufficient_funds", "spendable balance too low")

	meta, ok := tracker.Status(hash)
	if !ok {
		t.Fatal("Expected failed payment to be found")
	}
	if meta.Status != types.PaymentStatusFailed {
		t.Errorf("Expected status %d, got %d", types.PaymentStatusFailed, meta.Status)
	}
	if meta.ErrorCode != "insufficient_funds" {
		t.Errorf("Expected error code insufficient_funds, got %q", meta.ErrorCode)
	}
}

func TestTrackerUnknownHash(t *testing.T) {
	tracker := &PaymentTracker{}
	if _, ok := tracker.Status("does-not-exist"); ok {
		t.Error("Expected unknown hash to not be found")
	}
	if tracker.IsPending("does-not-exist") {
		t.Error("Expected unknown hash to not be pending")
	}
}

func TestTrackerStatusReturnsCopy(t *testing.T) {
	tracker := &PaymentTracker{}
	req, _ := newSignedRequest(t)
	hash := req.Hash()

	tracker.TrackPending(req)
	meta, _ := tracker.Status(hash)
	meta.Status = types.PaymentStatusFailed

	fresh, _ := tracker.Status(hash)
	if fresh.Status != types.PaymentStatusPending {
		t.Error("Expected mutation of a returned copy to not affect tracker state")
	}
}

func TestTrackPendingIdempotent(t *testing.T) {
	tracker := &PaymentTracker{}
	req, _ := newSignedRequest(t)

	tracker.TrackPending(req)
	tracker.TrackPending(req)

	if got := tracker.pendingCount; got != 1 {
		t.Errorf("Expected pending count 1 after duplicate track, got %d", got)
	}
}
