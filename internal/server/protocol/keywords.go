// Package protocol runs the request/response exchange of one client
// connection. Every request frame starts with a wrapped keyword string
// followed by keyword specific data; every response is a single frame.
package protocol

// Status keywords sent back as a wrapped string.
const (
	StatusOK                      = "OK"
	StatusNotLoggedIn             = "NOT_LOGGED_IN"
	StatusServerError             = "SERVER_ERROR"
	StatusUnknownUserOrPass       = "UNKNOWN_USER_OR_PASS"
	StatusUserAlreadyExists       = "USER_ALREADY_EXISTS"
	StatusBadDataReceived         = "BAD_DATA_RECEIVED"
	StatusEmailNotKnownOrVerified = "EMAIL_NOT_KNOWN_OR_VERIFIED"
	StatusIDNotFound              = "ID_NOT_FOUND"
	StatusNotAValidEmailAddress   = "NOT_A_VALID_EMAIL_ADDRESS"
)

// Kind identifies a request.
type Kind int

const (
	KindUnknown Kind = iota
	KindHello
	KindRequestTimestamp
	KindRequestNewUsername
	KindLogin
	KindNewAccount
	KindUpdatePassword
	KindChangePassword
	KindSetEmail
	KindMigrateEmailData
	KindConfirmEmail
	KindSendingBackupEmailData
	KindSendTestEmail
	KindSendingFlights
	KindRequestFlightsSinceTimestamp
	KindRequestFlightsByID
	KindRequestFlightsListChecksum
	KindRequestIDWithTimestampsList
	KindAddTimestamp
	KindSaveChanges
	KindRemoveDuplicates
	KindSendingAircraftConsensus
	KindRequestAircraftConsensus
	KindRequestAircraftTypes
	KindRequestAircraftTypesVersion
	KindRequestForcedTypes
	KindRequestForcedTypesVersion
	KindRequestAirportDB
	KindRequestAirportDBVersion
	KindSendingFeedback
	KindSendingP2PData
	KindRequestP2PData
	KindEndOfSession

	numKinds
)

var keywords = [numKinds]string{
	KindUnknown:                      "UNKNOWN_KEYWORD",
	KindHello:                        "HELLO",
	KindRequestTimestamp:             "REQUEST_TIMESTAMP",
	KindRequestNewUsername:           "REQUEST_NEW_USERNAME",
	KindLogin:                        "LOGIN",
	KindNewAccount:                   "NEW_ACCOUNT",
	KindUpdatePassword:               "UPDATE_PASSWORD",
	KindChangePassword:               "CHANGE_PASSWORD",
	KindSetEmail:                     "SET_EMAIL",
	KindMigrateEmailData:             "MIGRATE_EMAIL_DATA",
	KindConfirmEmail:                 "CONFIRM_EMAIL",
	KindSendingBackupEmailData:       "SENDING_BACKUP_EMAIL_DATA",
	KindSendTestEmail:                "SEND_TEST_EMAIL",
	KindSendingFlights:               "SENDING_FLIGHTS",
	KindRequestFlightsSinceTimestamp: "REQUEST_FLIGHTS_SINCE_TIMESTAMP",
	KindRequestFlightsByID:           "REQUEST_FLIGHTS_BY_ID",
	KindRequestFlightsListChecksum:   "REQUEST_FLIGHTS_LIST_CHECKSUM",
	KindRequestIDWithTimestampsList:  "REQUEST_ID_WITH_TIMESTAMPS_LIST",
	KindAddTimestamp:                 "ADD_TIMESTAMP",
	KindSaveChanges:                  "SAVE_CHANGES",
	KindRemoveDuplicates:             "REMOVE_DUPLICATES",
	KindSendingAircraftConsensus:     "SENDING_AIRCRAFT_CONSENSUS",
	KindRequestAircraftConsensus:     "REQUEST_AIRCRAFT_CONSENSUS",
	KindRequestAircraftTypes:         "REQUEST_AIRCRAFT_TYPES",
	KindRequestAircraftTypesVersion:  "REQUEST_AIRCRAFT_TYPES_VERSION",
	KindRequestForcedTypes:           "REQUEST_FORCED_TYPES",
	KindRequestForcedTypesVersion:    "REQUEST_FORCED_TYPES_VERSION",
	KindRequestAirportDB:             "REQUEST_AIRPORT_DB",
	KindRequestAirportDBVersion:      "REQUEST_AIRPORT_DB_VERSION",
	KindSendingFeedback:              "SENDING_FEEDBACK",
	KindSendingP2PData:               "SENDING_P2P_DATA",
	KindRequestP2PData:               "REQUEST_P2P_DATA",
	KindEndOfSession:                 "END_OF_SESSION",
}

var kindByKeyword = func() map[string]Kind {
	m := make(map[string]Kind, numKinds)
	for k := KindUnknown + 1; k < numKinds; k++ {
		m[keywords[k]] = k
	}
	return m
}()

// Keyword returns the wire name of k.
func (k Kind) Keyword() string {
	if k < 0 || k >= numKinds {
		return keywords[KindUnknown]
	}
	return keywords[k]
}

func (k Kind) String() string {
	return k.Keyword()
}

// KindOf maps a keyword to its Kind; unknown keywords give KindUnknown.
func KindOf(keyword string) Kind {
	return kindByKeyword[keyword]
}
