package sqldb

import "context"

const deleteHeaderKeywords = `DELETE FROM header_keywords WHERE identifier = ?`

func (q *Queries) DeleteHeaderKeywords(ctx context.Context, identifier string) error {
	_, err := q.db.ExecContext(ctx, deleteHeaderKeywords, identifier)
	return err
}

const insertHeaderKeyword = `INSERT INTO header_keywords (identifier, extension, position, keyword, value)
VALUES (?, ?, ?, ?, ?)`

type InsertHeaderKeywordParams = HeaderKeyword

func (q *Queries) InsertHeaderKeyword(ctx context.Context, arg InsertHeaderKeywordParams) error {
	_, err := q.db.ExecContext(ctx, insertHeaderKeyword,
		arg.Identifier,
		arg.Extension,
		arg.Position,
		arg.Keyword,
		arg.Value,
	)
	return err
}

const listHeaderKeywords = `SELECT identifier, extension, position, keyword, value
FROM header_keywords
WHERE identifier = ?
ORDER BY extension, position`

func (q *Queries) ListHeaderKeywords(ctx context.Context, identifier string) ([]HeaderKeyword, error) {
	rows, err := q.db.QueryContext(ctx, listHeaderKeywords, identifier)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []HeaderKeyword
	for rows.Next() {
		var i HeaderKeyword
		if err := rows.Scan(&i.Identifier, &i.Extension, &i.Position, &i.Keyword, &i.Value); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
