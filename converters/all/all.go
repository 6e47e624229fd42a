package all

import (
	// Import all the writers so they register themselves
	_ "github.com/darianmavgo/sqldump2xlsx/converters/csv"
	_ "github.com/darianmavgo/sqldump2xlsx/converters/excel"
	_ "github.com/darianmavgo/sqldump2xlsx/converters/html"
)
