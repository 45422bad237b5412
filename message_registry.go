package xproto

// Client and server message type ids mirror the X Protocol's
// Mysqlx.ClientMessages / Mysqlx.ServerMessages enums (the protobuf
// schema catalog referenced in spec.md §6). The core treats payloads as
// opaque for every type except the small control set named in spec.md
// §3; the registry exists so higher layers and diagnostics can name a
// frame without hard-coding the numeric id.

// Client -> server message type ids.
const (
	TypeConCapabilitiesGet      byte = 1
	TypeConCapabilitiesSet      byte = 2
	TypeSessAuthenticateStart   byte = 4
	TypeSessAuthenticateContinue byte = 5
	TypeSessReset               byte = 6
	TypeSessClose               byte = 7
	TypeSQLStmtExecute          byte = 12
	TypeCrudFind                byte = 17
	TypeCrudInsert              byte = 18
	TypeCrudUpdate              byte = 19
	TypeCrudDelete              byte = 20
	TypeExpectOpen              byte = 24
	TypeExpectClose             byte = 25
	TypeCursorOpen              byte = 43
	TypeCursorClose             byte = 44
	TypeCursorFetch             byte = 45
)

// Server -> client message type ids.
const (
	TypeOk                            byte = 0
	TypeError                         byte = 1
	TypeConCapabilities               byte = 2
	TypeSessAuthenticateOk            byte = 3
	TypeNotice                        byte = 11
	TypeResultsetColumnMetaData       byte = 12
	TypeResultsetRow                  byte = 13
	TypeResultsetFetchDone            byte = 14
	TypeResultsetFetchSuspended       byte = 15
	TypeResultsetFetchDoneMoreResultsets byte = 16
	TypeSQLStmtExecuteOk              byte = 17
)

// messageNames maps a (direction, type) pair to its logical name, purely
// for diagnostics and log lines.
var messageNames = map[Direction]map[byte]string{
	DirectionClientToServer: {
		TypeConCapabilitiesGet:       "ConnectionCapabilitiesGet",
		TypeConCapabilitiesSet:       "ConnectionCapabilitiesSet",
		TypeSessAuthenticateStart:    "SessAuthenticateStart",
		TypeSessAuthenticateContinue: "SessAuthenticateContinue",
		TypeSessReset:                "SessReset",
		TypeSessClose:                "SessClose",
		TypeSQLStmtExecute:           "Sql.StmtExecute",
		TypeCrudFind:                 "Crud.Find",
		TypeCrudInsert:               "Crud.Insert",
		TypeCrudUpdate:               "Crud.Update",
		TypeCrudDelete:               "Crud.Delete",
		TypeExpectOpen:               "Expect.Open",
		TypeExpectClose:              "Expect.Close",
		TypeCursorOpen:               "Cursor.Open",
		TypeCursorClose:              "Cursor.Close",
		TypeCursorFetch:              "Cursor.Fetch",
	},
	DirectionServerToClient: {
		TypeOk:                               "Ok",
		TypeError:                            "Error",
		TypeConCapabilities:                  "Connection.Capabilities",
		TypeSessAuthenticateOk:               "SessAuthenticateOk",
		TypeNotice:                           "Notice.Frame",
		TypeResultsetColumnMetaData:          "Resultset.ColumnMetaData",
		TypeResultsetRow:                     "Resultset.Row",
		TypeResultsetFetchDone:               "Resultset.FetchDone",
		TypeResultsetFetchSuspended:          "Resultset.FetchSuspended",
		TypeResultsetFetchDoneMoreResultsets: "Resultset.FetchDoneMoreResultsets",
		TypeSQLStmtExecuteOk:                 "StmtExecuteOk",
	},
}

// MessageName returns the logical name for a (direction, type) pair, or
// "Unknown(<id>)" if the registry has no entry.
func MessageName(dir Direction, typeID byte) string {
	if m, ok := messageNames[dir]; ok {
		if name, ok := m[typeID]; ok {
			return name
		}
	}
	return unknownMessageName(typeID)
}

func unknownMessageName(typeID byte) string {
	const hex = "0123456789abcdef"
	return "Unknown(0x" + string([]byte{hex[typeID>>4], hex[typeID&0xf]}) + ")"
}

// isTerminal reports whether a server->client message closes the
// ReplyStream it belongs to (spec.md §3, ReplyStream; §4.5 Termination).
func isTerminal(typeID byte) bool {
	switch typeID {
	case TypeOk, TypeError, TypeSQLStmtExecuteOk, TypeResultsetFetchDone, TypeResultsetFetchDoneMoreResultsets:
		return true
	default:
		return false
	}
}
