package ledger

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
	Height uint64 `json:"height"`
}

type GetNetworkInfoRequest struct{}

// NetworkInfo is what a client needs before it can encrypt inputs and check
// decryption proofs.
type NetworkInfo struct {
	ChainID             string `json:"chain_id"`
	ContractAddress     string `json:"contract_address"`
	EncryptionPublicKey []byte `json:"encryption_public_key"`
	KMSVerifyingKey     []byte `json:"kms_verifying_key"`
}

// ConnectRequest proves possession of the account key: Signature is an
// ed25519 signature of ConnectMessage(Timestamp).
type ConnectRequest struct {
	PublicKey []byte `json:"public_key"`
	Timestamp int64  `json:"timestamp"`
	Signature []byte `json:"signature"`
}

type ConnectResponse struct {
	Address     string `json:"address"`
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

type ListRecordIDsRequest struct {
	ContractAddress string `json:"contract_address"`
}

type ListRecordIDsResponse struct {
	IDs []string `json:"ids"`
}

type GetRecordRequest struct {
	ContractAddress string `json:"contract_address"`
	ID              string `json:"id"`
}

// RecordView is the public projection of a stored record. Numeric fields are
// decimal strings.
type RecordView struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Description          string `json:"description"`
	PublicScore          string `json:"public_score"`
	SecondaryPublicValue string `json:"secondary_public_value"`
	Creator              string `json:"creator"`
	CreatedAt            string `json:"created_at"`
	IsVerified           bool   `json:"is_verified"`
	VerifiedValue        string `json:"verified_value"`
}

type GetRecordResponse struct {
	Record RecordView `json:"record"`
}

type GetEncryptedHandleRequest struct {
	ContractAddress string `json:"contract_address"`
	ID              string `json:"id"`
}

type GetEncryptedHandleResponse struct {
	Handle string `json:"handle"`
}

type SendTransactionRequest struct {
	Tx SignedTx `json:"tx"`
}

type SendTransactionResponse struct {
	Hash string `json:"hash"`
}

type GetReceiptRequest struct {
	Hash string `json:"hash"`
}

type GetReceiptResponse struct {
	Receipt Receipt `json:"receipt"`
}

type ReceiptStatus string

const (
	ReceiptPending  ReceiptStatus = "pending"
	ReceiptSuccess  ReceiptStatus = "success"
	ReceiptReverted ReceiptStatus = "reverted"
)

// Receipt reports the outcome of a submitted transaction. Block and Reason
// are set once the transaction has been executed.
type Receipt struct {
	Hash   string        `json:"hash"`
	Status ReceiptStatus `json:"status"`
	Block  uint64        `json:"block"`
	Reason string        `json:"reason,omitempty"`
}

// RequestDecryptionRequest asks the relayer for the clear values of handles.
type RequestDecryptionRequest struct {
	ContractAddress string   `json:"contract_address"`
	Handles         []string `json:"handles"`
	Requester       string   `json:"requester"`
}

// RequestDecryptionResponse carries ABI-encoded clear values in request
// order and the KMS signature over them.
type RequestDecryptionResponse struct {
	ClearValues []byte `json:"clear_values"`
	Proof       []byte `json:"proof"`
}
