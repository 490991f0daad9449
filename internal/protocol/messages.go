package protocol

// Fixed widths of string fields
const (
	UsernameSize    = 32
	PasswordSize    = 64
	DisplayNameSize = 64
	MessageSize     = 128
)

// Encoded body sizes
const (
	AuthRegisterSize      = UsernameSize + PasswordSize + DisplayNameSize
	AuthLoginSize         = UsernameSize + PasswordSize
	AuthResponseSize      = 1 + 8 + 4 + TokenSize + DisplayNameSize + MessageSize
	PlayerInfoSize        = 8 + UsernameSize + DisplayNameSize + 4 + 1
	ChallengeSendSize     = 8 + 4 + 1
	ChallengeReceivedSize = 8 + 8 + UsernameSize + DisplayNameSize + 4 + 4 + 1 + 8
	ChallengeResponseSize = 8 + 1
	ChallengeCancelSize   = 8
	ChallengeResultSize   = 8 + 1 + MessageSize
	MatchStartSize        = 8 + 8 + UsernameSize + DisplayNameSize + 4 + 4 + 1 + 1
	QueueJoinSize         = 4
	QueueStatusSize       = 1 + 4 + 4 + 4 + 4 + 4 + MessageSize
	ErrorMessageSize      = 2 + MessageSize
)

// MaxPlayerListEntries is the most players a PlayerList can carry without
// exceeding DefaultMaxMessageSize
const MaxPlayerListEntries = int(DefaultMaxMessageSize-4) / PlayerInfoSize

// AuthRegister creates an account and logs in
type AuthRegister struct {
	Username    string
	Password    string
	DisplayName string
}

func (m AuthRegister) MarshalBinary() ([]byte, error) {
	e := newEncoder(AuthRegisterSize)
	e.str(m.Username, UsernameSize)
	e.str(m.Password, PasswordSize)
	e.str(m.DisplayName, DisplayNameSize)
	return e.bytes(), nil
}

func (m *AuthRegister) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	m.Username = d.str(UsernameSize)
	m.Password = d.str(PasswordSize)
	m.DisplayName = d.str(DisplayNameSize)
	return d.err
}

// AuthLogin authenticates an existing account
type AuthLogin struct {
	Username string
	Password string
}

func (m AuthLogin) MarshalBinary() ([]byte, error) {
	e := newEncoder(AuthLoginSize)
	e.str(m.Username, UsernameSize)
	e.str(m.Password, PasswordSize)
	return e.bytes(), nil
}

func (m *AuthLogin) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	m.Username = d.str(UsernameSize)
	m.Password = d.str(PasswordSize)
	return d.err
}

// AuthResponse answers AuthRegister and AuthLogin
type AuthResponse struct {
	Success      bool
	UserID       uint64
	EloRating    int32
	SessionToken string
	DisplayName  string
	Message      string
}

func (m AuthResponse) MarshalBinary() ([]byte, error) {
	e := newEncoder(AuthResponseSize)
	e.boolean(m.Success)
	e.u64(m.UserID)
	e.i32(m.EloRating)
	e.str(m.SessionToken, TokenSize)
	e.str(m.DisplayName, DisplayNameSize)
	e.str(m.Message, MessageSize)
	return e.bytes(), nil
}

func (m *AuthResponse) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	m.Success = d.boolean()
	m.UserID = d.u64()
	m.EloRating = d.i32()
	m.SessionToken = d.str(TokenSize)
	m.DisplayName = d.str(DisplayNameSize)
	m.Message = d.str(MessageSize)
	return d.err
}

// PlayerInfo describes one online player. It is also the body of
// PLAYER_STATUS_UPDATE.
type PlayerInfo struct {
	UserID      uint64
	Username    string
	DisplayName string
	EloRating   int32
	Status      uint8
}

func (m PlayerInfo) MarshalBinary() ([]byte, error) {
	e := newEncoder(PlayerInfoSize)
	m.encode(e)
	return e.bytes(), nil
}

func (m *PlayerInfo) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	m.decode(d)
	return d.err
}

func (m PlayerInfo) encode(e *encoder) {
	e.u64(m.UserID)
	e.str(m.Username, UsernameSize)
	e.str(m.DisplayName, DisplayNameSize)
	e.i32(m.EloRating)
	e.u8(m.Status)
}

func (m *PlayerInfo) decode(d *decoder) {
	m.UserID = d.u64()
	m.Username = d.str(UsernameSize)
	m.DisplayName = d.str(DisplayNameSize)
	m.EloRating = d.i32()
	m.Status = d.u8()
}

// PlayerList is a count-prefixed sequence of PlayerInfo
type PlayerList struct {
	Players []PlayerInfo
}

func (m PlayerList) MarshalBinary() ([]byte, error) {
	e := newEncoder(4 + len(m.Players)*PlayerInfoSize)
	e.u32(uint32(len(m.Players)))
	for _, p := range m.Players {
		p.encode(e)
	}
	return e.bytes(), nil
}

func (m *PlayerList) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	count := d.u32()
	if d.err != nil {
		return d.err
	}
	if uint64(count)*PlayerInfoSize > uint64(len(data)-4) {
		return ErrShortPayload
	}
	m.Players = make([]PlayerInfo, count)
	for i := range m.Players {
		m.Players[i].decode(d)
	}
	return d.err
}

// ChallengeSend asks the server to challenge another player
type ChallengeSend struct {
	TargetID        uint64
	TimeLimit       uint32
	RandomPlacement bool
}

func (m ChallengeSend) MarshalBinary() ([]byte, error) {
	e := newEncoder(ChallengeSendSize)
	e.u64(m.TargetID)
	e.u32(m.TimeLimit)
	e.boolean(m.RandomPlacement)
	return e.bytes(), nil
}

func (m *ChallengeSend) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	m.TargetID = d.u64()
	m.TimeLimit = d.u32()
	m.RandomPlacement = d.boolean()
	return d.err
}

// ChallengeReceived notifies the target of a new challenge
type ChallengeReceived struct {
	ChallengeID           uint64
	ChallengerID          uint64
	ChallengerUsername    string
	ChallengerDisplayName string
	ChallengerElo         int32
	TimeLimit             uint32
	RandomPlacement       bool
	ExpiresAt             int64
}

func (m ChallengeReceived) MarshalBinary() ([]byte, error) {
	e := newEncoder(ChallengeReceivedSize)
	e.u64(m.ChallengeID)
	e.u64(m.ChallengerID)
	e.str(m.ChallengerUsername, UsernameSize)
	e.str(m.ChallengerDisplayName, DisplayNameSize)
	e.i32(m.ChallengerElo)
	e.u32(m.TimeLimit)
	e.boolean(m.RandomPlacement)
	e.i64(m.ExpiresAt)
	return e.bytes(), nil
}

func (m *ChallengeReceived) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	m.ChallengeID = d.u64()
	m.ChallengerID = d.u64()
	m.ChallengerUsername = d.str(UsernameSize)
	m.ChallengerDisplayName = d.str(DisplayNameSize)
	m.ChallengerElo = d.i32()
	m.TimeLimit = d.u32()
	m.RandomPlacement = d.boolean()
	m.ExpiresAt = d.i64()
	return d.err
}

// ChallengeResponse accepts or declines a received challenge
type ChallengeResponse struct {
	ChallengeID uint64
	Accepted    bool
}

func (m ChallengeResponse) MarshalBinary() ([]byte, error) {
	e := newEncoder(ChallengeResponseSize)
	e.u64(m.ChallengeID)
	e.boolean(m.Accepted)
	return e.bytes(), nil
}

func (m *ChallengeResponse) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	m.ChallengeID = d.u64()
	m.Accepted = d.boolean()
	return d.err
}

// ChallengeCancel withdraws a challenge the sender issued
type ChallengeCancel struct {
	ChallengeID uint64
}

func (m ChallengeCancel) MarshalBinary() ([]byte, error) {
	e := newEncoder(ChallengeCancelSize)
	e.u64(m.ChallengeID)
	return e.bytes(), nil
}

func (m *ChallengeCancel) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	m.ChallengeID = d.u64()
	return d.err
}

// ChallengeResult reports the outcome of a challenge operation
type ChallengeResult struct {
	ChallengeID uint64
	Success     bool
	Message     string
}

func (m ChallengeResult) MarshalBinary() ([]byte, error) {
	e := newEncoder(ChallengeResultSize)
	e.u64(m.ChallengeID)
	e.boolean(m.Success)
	e.str(m.Message, MessageSize)
	return e.bytes(), nil
}

func (m *ChallengeResult) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	m.ChallengeID = d.u64()
	m.Success = d.boolean()
	m.Message = d.str(MessageSize)
	return d.err
}

// MatchStart tells one side that a match has been created
type MatchStart struct {
	MatchID             uint64
	OpponentID          uint64
	OpponentUsername    string
	OpponentDisplayName string
	OpponentElo         int32
	TimeLimit           uint32
	RandomPlacement     bool
	YouGoFirst          bool
}

func (m MatchStart) MarshalBinary() ([]byte, error) {
	e := newEncoder(MatchStartSize)
	e.u64(m.MatchID)
	e.u64(m.OpponentID)
	e.str(m.OpponentUsername, UsernameSize)
	e.str(m.OpponentDisplayName, DisplayNameSize)
	e.i32(m.OpponentElo)
	e.u32(m.TimeLimit)
	e.boolean(m.RandomPlacement)
	e.boolean(m.YouGoFirst)
	return e.bytes(), nil
}

func (m *MatchStart) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	m.MatchID = d.u64()
	m.OpponentID = d.u64()
	m.OpponentUsername = d.str(UsernameSize)
	m.OpponentDisplayName = d.str(DisplayNameSize)
	m.OpponentElo = d.i32()
	m.TimeLimit = d.u32()
	m.RandomPlacement = d.boolean()
	m.YouGoFirst = d.boolean()
	return d.err
}

// QueueJoin enters the matchmaking queue
type QueueJoin struct {
	TimeLimit uint32
}

func (m QueueJoin) MarshalBinary() ([]byte, error) {
	e := newEncoder(QueueJoinSize)
	e.u32(m.TimeLimit)
	return e.bytes(), nil
}

func (m *QueueJoin) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	m.TimeLimit = d.u32()
	return d.err
}

// QueueStatus reports a player's place in the matchmaking queue
type QueueStatus struct {
	InQueue     bool
	Position    uint32
	TotalQueued uint32
	WaitSeconds uint32
	EloMin      int32
	EloMax      int32
	Message     string
}

func (m QueueStatus) MarshalBinary() ([]byte, error) {
	e := newEncoder(QueueStatusSize)
	e.boolean(m.InQueue)
	e.u32(m.Position)
	e.u32(m.TotalQueued)
	e.u32(m.WaitSeconds)
	e.i32(m.EloMin)
	e.i32(m.EloMax)
	e.str(m.Message, MessageSize)
	return e.bytes(), nil
}

func (m *QueueStatus) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	m.InQueue = d.boolean()
	m.Position = d.u32()
	m.TotalQueued = d.u32()
	m.WaitSeconds = d.u32()
	m.EloMin = d.i32()
	m.EloMax = d.i32()
	m.Message = d.str(MessageSize)
	return d.err
}

// ErrorMessage reports a request the server could not process
type ErrorMessage struct {
	Code    ErrorCode
	Message string
}

func (m ErrorMessage) MarshalBinary() ([]byte, error) {
	e := newEncoder(ErrorMessageSize)
	e.u16(uint16(m.Code))
	e.str(m.Message, MessageSize)
	return e.bytes(), nil
}

func (m *ErrorMessage) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	m.Code = ErrorCode(d.u16())
	m.Message = d.str(MessageSize)
	return d.err
}
