package password

import "testing"

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("s3cret-passphrase")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if !Verify("s3cret-passphrase", encoded) {
		t.Fatal("correct password did not verify")
	}
	if Verify("wrong-passphrase", encoded) {
		t.Fatal("wrong password verified")
	}
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=2$!!$aGFzaA",
	} {
		if Verify("anything", encoded) {
			t.Fatalf("malformed hash %q verified", encoded)
		}
	}
}

func TestHashesAreSalted(t *testing.T) {
	a, err := Hash("same-password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := Hash("same-password")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password are identical")
	}
}
