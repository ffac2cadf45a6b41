package main

// CLIVersion is the version reported by `sqlstmt --version`.
const CLIVersion = "v0.1.0"
