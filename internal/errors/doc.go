// Package errors provides structured, actionable error messages for the
// sharedstore command and its config loader.
//
// Each error has a unique code (e.g., "S004") that maps to a short message,
// a longer explanation and, where one exists, a hint. Config errors carry
// the file location they refer to:
//
//	err := errors.New(errors.CodeConfigPort).
//	    WithLocation("sharedstore.json", 9, 13)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR S004: Invalid inspector port
//	//
//	//   sharedstore.json:9:13
//	//
//	//        7 │   "inspector": {
//	//        8 │     "host": "localhost",
//	//   →    9 │     "port": 700000
//	//          │             ^
//	//
//	//   inspector.port must be between 1 and 65535.
//	//
//	//   Hint: Set inspector.port to a free port such as 7070
package errors
