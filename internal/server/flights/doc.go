// Package flights stores each user's logbook as one encrypted file.
//
// File layout:
//
//	[0,32)   SHA-256(username ++ "JoozdLog" ++ key), the key verification hash
//	[32,36)  int32 flight schema version, 0 for an empty logbook
//	[36,44)  int64 epoch seconds of the last save
//	[44,...) AES-GCM ciphertext of the packed flights
//
// Writes rename the current file to a numbered ".backup" sibling, write the
// new content and then drop the backup. Opening a store promotes a leftover
// backup, which repairs a write interrupted by a crash.
package flights
